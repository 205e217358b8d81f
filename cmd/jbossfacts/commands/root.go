package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/jbossfacts/pkg/config"
	"github.com/openfroyo/jbossfacts/pkg/facts"
	"github.com/openfroyo/jbossfacts/pkg/jboss"
	"github.com/openfroyo/jbossfacts/pkg/telemetry"
)

// app holds what every subcommand needs once the configuration is loaded.
type app struct {
	// Global flags
	configPath  string
	verbose     bool
	jsonOutput  bool
	metricsFile string

	cfg *config.Config
	tel *telemetry.Telemetry

	stdout io.Writer

	// newCollector builds the instance collector. Tests replace it to scan
	// an in-memory directory.
	newCollector func() *jboss.Collector
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	a := &app{
		stdout:       os.Stdout,
		newCollector: jboss.NewHostCollector,
	}
	return newRootCommand(a, version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(a *app, version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jbossfacts",
		Short: "Publish facts about installed JBoss server instances",
		Long: fmt.Sprintf(`jbossfacts discovers JBoss application server instances under %s
and publishes them as facts for configuration management.

Every directory entry whose name ends in a digit is an instance; the name
without that digit is its application. Published facts:

  jboss_instances        all instances, comma separated
  <application>_instances instances of one application`, jboss.DefaultInstancePath),
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	rootCmd.SetOut(a.stdout)

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (.yaml or .cue)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(newFactsCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))

	return rootCmd
}

// setup loads the configuration and starts telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader().Load(a.configPath)
	if err != nil {
		return err
	}

	if a.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if a.jsonOutput {
		cfg.Output.Format = config.FormatJSON
	}
	if a.metricsFile != "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.TextfilePath = a.metricsFile
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// Code that logs through the global logger follows the configuration too.
	log.Logger = *tel.Logger.Zerolog()
	zerolog.SetGlobalLevel(telemetry.ParseLevel(cfg.Telemetry.Logging.Level))

	a.cfg = cfg
	a.tel = tel
	cmd.SetContext(tel.WithContext(cmd.Context()))

	log.Debug().
		Str("config", a.configPath).
		Str("target_id", cfg.TargetID).
		Str("format", cfg.Output.Format).
		Msg("Configuration loaded")

	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.tel == nil {
		return nil
	}
	return a.tel.Shutdown(ctx)
}

// gather runs the instance collector once.
func (a *app) gather(ctx context.Context) (*facts.Set, *jboss.Collector, error) {
	collector := a.newCollector()
	set, err := facts.Gather(ctx, collector)
	if err != nil {
		return nil, nil, err
	}
	return set, collector, nil
}
