package config

import (
	"errors"
	"os"
	"time"

	"github.com/openfroyo/jbossfacts/pkg/telemetry"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Output formats.
const (
	FormatFacter = "facter"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

// Config is the agent configuration.
type Config struct {
	// TargetID identifies this host in the fact history. Defaults to the hostname.
	TargetID string `yaml:"target_id" json:"target_id" validate:"required,max=253"`

	// Output controls how facts are printed.
	Output OutputConfig `yaml:"output" json:"output"`

	// Store configures the optional fact history.
	Store StoreConfig `yaml:"store" json:"store"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// OutputConfig controls fact printing.
type OutputConfig struct {
	// Format is one of facter, json, yaml.
	Format string `yaml:"format" json:"format" validate:"oneof=facter json yaml"`
}

// StoreConfig configures the SQLite fact history.
type StoreConfig struct {
	// Enabled records every gathering when true.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Path is the database file.
	Path string `yaml:"path" json:"path" validate:"required_if=Enabled true"`

	// TTL is how long recorded facts stay valid. Zero keeps them until the
	// next recording replaces them.
	TTL time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	target, err := os.Hostname()
	if err != nil || target == "" {
		target = "localhost"
	}

	return &Config{
		TargetID: target,
		Output: OutputConfig{
			Format: FormatFacter,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    "/var/lib/jbossfacts/facts.db",
			TTL:     24 * time.Hour,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}
