package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/jbossfacts/pkg/config"
	"github.com/openfroyo/jbossfacts/pkg/stores"
	"github.com/openfroyo/jbossfacts/pkg/telemetry"
)

func newHistoryCommand(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the recorded fact history",
		Long: `Inspect facts recorded with "jbossfacts facts --record".

The history is written only; fact collection never reads from it.`,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "fact history database path (overrides config)")

	path := func() string {
		if dbPath != "" {
			return dbPath
		}
		return a.cfg.Store.Path
	}

	cmd.AddCommand(newHistoryListCommand(a, path))
	cmd.AddCommand(newHistoryCollectionsCommand(a, path))
	cmd.AddCommand(newHistoryPruneCommand(path))

	return cmd
}

// withHistory runs fn against an existing fact history. A history that was
// never recorded is reported and fn is skipped, so reading never creates
// the database or its directory.
func withHistory(ctx context.Context, path, target string, fn func(*stores.SQLiteStore) error) error {
	logger := telemetry.FromContext(ctx).WithField("path", path)
	if target != "" {
		logger = logger.WithTarget(target)
	}

	store, err := openExistingStore(ctx, path)
	if errors.Is(err, stores.ErrNotFound) {
		logger.Info("No fact history recorded yet")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	logger.Debug("Reading fact history")
	return fn(store)
}

func newHistoryListCommand(a *app, path func() string) *cobra.Command {
	var (
		key    string
		target string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded facts that have not expired",
		Example: `  # List every recorded fact
  jbossfacts history list

  # Show the recorded instance list of one host
  jbossfacts history list --target app01 --key jboss_instances`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var filter stores.FactFilter
			if key != "" {
				filter.Key = &key
			}
			if target != "" {
				filter.TargetID = &target
			}

			recorded := []*stores.Fact{}
			err := withHistory(ctx, path(), target, func(store *stores.SQLiteStore) error {
				var err error
				recorded, err = store.ListFacts(ctx, filter, limit, 0)
				return err
			})
			if err != nil {
				return err
			}

			if a.cfg.Output.Format == config.FormatJSON {
				return writeJSON(a.stdout, recorded)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TARGET\tKEY\tVALUE\tUPDATED")
			for _, f := range recorded {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.TargetID, f.Key, f.Value, f.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "only facts with this name")
	cmd.Flags().StringVarP(&target, "target", "t", "", "only facts of this target")
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum number of facts")

	return cmd
}

func newHistoryCollectionsCommand(a *app, path func() string) *cobra.Command {
	var (
		target string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List recorded gatherings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var targetID *string
			if target != "" {
				targetID = &target
			}

			collections := []*stores.Collection{}
			err := withHistory(ctx, path(), target, func(store *stores.SQLiteStore) error {
				var err error
				collections, err = store.ListCollections(ctx, targetID, limit, 0)
				return err
			})
			if err != nil {
				return err
			}

			if a.cfg.Output.Format == config.FormatJSON {
				return writeJSON(a.stdout, collections)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTARGET\tINSTANCES\tFACTS\tCOLLECTED")
			for _, c := range collections {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					c.ID, c.TargetID, c.InstanceCount, c.FactCount, c.CollectedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "only gatherings of this target")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of gatherings")

	return cmd
}

func newHistoryPruneCommand(path func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return withHistory(ctx, path(), "", func(store *stores.SQLiteStore) error {
				deleted, err := store.DeleteExpiredFacts(ctx)
				if err != nil {
					return err
				}
				telemetry.FromContext(ctx).WithField("deleted", deleted).Info("Expired facts pruned")
				return nil
			})
		},
	}
}
