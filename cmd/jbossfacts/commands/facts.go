package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openfroyo/jbossfacts/pkg/config"
	"github.com/openfroyo/jbossfacts/pkg/facts"
	"github.com/openfroyo/jbossfacts/pkg/jboss"
	"github.com/openfroyo/jbossfacts/pkg/stores"
	"github.com/openfroyo/jbossfacts/pkg/telemetry"
)

func newFactsCommand(a *app) *cobra.Command {
	var (
		format string
		record bool
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "facts [NAME...]",
		Short: "Print JBoss instance facts",
		Long: `Scan the JBoss server directory once and print the resulting facts.

With NAME arguments only those facts are printed; unknown names are
skipped. A single NAME in facter format prints the bare value.

A missing or unreadable server directory is not an error: no facts are
published and the command succeeds.`,
		Example: `  # Print every fact
  jbossfacts facts

  # Print one fact's value
  jbossfacts facts jboss_instances

  # Print as YAML and record the result in the fact history
  jbossfacts facts --format yaml --record

  # Export metrics for the node_exporter textfile collector
  jbossfacts facts --metrics-file /var/lib/node_exporter/jbossfacts.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if format == "" {
				format = a.cfg.Output.Format
			}
			if !validFormat(format) {
				return fmt.Errorf("unsupported format %q (want facter, json or yaml)", format)
			}

			set, collector, err := a.gather(ctx)
			if err != nil {
				return err
			}

			values := set.Resolve()
			if len(args) > 0 {
				values = set.Select(args...)
			}

			if err := writeFacts(a.stdout, format, values, len(args) == 1); err != nil {
				return err
			}

			if record || a.cfg.Store.Enabled {
				storeCfg := a.cfg.Store
				if dbPath != "" {
					storeCfg.Path = dbPath
				}
				// The facts are already printed; a failed recording is logged, not fatal.
				if err := recordFacts(ctx, storeCfg, a.cfg.TargetID, collector, set); err != nil {
					telemetry.FromContext(ctx).
						WithTarget(a.cfg.TargetID).
						WithField("path", storeCfg.Path).
						WithError(err).
						Warn("Failed to record facts")
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: facter, json or yaml (default from config)")
	cmd.Flags().BoolVar(&record, "record", false, "record the facts in the fact history")
	cmd.Flags().StringVar(&dbPath, "db", "", "fact history database path (overrides config)")

	return cmd
}

func validFormat(format string) bool {
	switch format {
	case config.FormatFacter, config.FormatJSON, config.FormatYAML:
		return true
	}
	return false
}

// recordFacts writes one collection and every published fact to the history.
func recordFacts(ctx context.Context, cfg config.StoreConfig, targetID string, collector *jboss.Collector, set *facts.Set) (err error) {
	ic := telemetry.StartOperation(ctx, "facts.record",
		telemetry.AttrTargetID.String(targetID),
		telemetry.AttrFactCount.Int(set.Len()),
	)
	defer func() {
		if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
			tel.Metrics.RecordStoreWrite(err)
		}
		ic.End(err)
	}()

	store, err := openStore(ic.Ctx, cfg.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	now := time.Now().UTC()
	collection := &stores.Collection{
		ID:            uuid.New().String(),
		TargetID:      targetID,
		Namespace:     collector.Name(),
		Root:          collector.Root(),
		InstanceCount: collector.Registry().Len(),
		FactCount:     set.Len(),
		CollectedAt:   now,
	}

	var expiresAt *time.Time
	ttl := int(cfg.TTL / time.Second)
	if ttl > 0 {
		t := now.Add(cfg.TTL)
		expiresAt = &t
	}

	values := set.Resolve()
	records := make([]*stores.Fact, 0, len(values))
	for _, name := range set.Names() {
		records = append(records, &stores.Fact{
			ID:        uuid.New().String(),
			TargetID:  targetID,
			Namespace: collector.Name(),
			Key:       name,
			Value:     values[name],
			TTL:       ttl,
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := store.RecordCollection(ic.Ctx, collection, records); err != nil {
		return err
	}

	ic.Logger.WithTarget(targetID).Zerolog().Info().
		Str("collection_id", collection.ID).
		Int("facts", len(records)).
		Msg("Facts recorded")

	return nil
}

// openExistingStore opens the fact history only if it has been recorded
// before. A missing file is stores.ErrNotFound.
func openExistingStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("fact history %s: %w", path, stores.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to stat fact history: %w", err)
		}
	}
	return openStore(ctx, path)
}

// openStore opens and migrates the fact history database, creating it if
// needed.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}

	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}
