package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader reads and validates configuration files.
type Loader struct {
	cue       *cue.Context
	schema    cue.Value
	validator *validator.Validate
	getenv    func(string) string
}

// NewLoader creates a loader that reads overrides from the process environment.
func NewLoader() *Loader {
	ctx := cuecontext.New()
	return &Loader{
		cue:       ctx,
		schema:    ctx.CompileString(configSchema, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config")),
		validator: validator.New(),
		getenv:    os.Getenv,
	}
}

// Load reads the configuration at path. An empty path yields the defaults.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return l.finish(Default())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		format = "cue"
	}

	return l.Parse(data, format, path)
}

// Parse decodes data in the given format ("yaml" or "cue") on top of the
// defaults. name is only used in error messages.
func (l *Loader) Parse(data []byte, format, name string) (*Config, error) {
	cfg := Default()

	switch format {
	case FormatYAML:
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	case "cue":
		if err := l.decodeCUE(data, name, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return l.finish(cfg)
}

// decodeYAML rejects unknown keys so typos do not pass silently.
func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// decodeCUE unifies the file with the schema and decodes the result.
// The concrete value is exported as JSON, which the YAML decoder accepts,
// so durations like "24h" are handled the same way in both formats.
func (l *Loader) decodeCUE(data []byte, name string, cfg *Config) error {
	if err := l.schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	val := l.cue.CompileBytes(data, cue.Filename(name))
	if err := val.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, formatCUEError(err))
	}

	unified := l.schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, formatCUEError(err))
	}

	exported, err := unified.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, formatCUEError(err))
	}

	if err := decodeYAML(exported, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	return nil
}

// finish applies environment overrides and validates.
func (l *Loader) finish(cfg *Config) (*Config, error) {
	if level := l.getenv("LOG_LEVEL"); level != "" {
		cfg.Telemetry.Logging.Level = level
	}

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the telemetry settings.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func formatCUEError(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, strings.TrimSpace(cueerrors.Details(e, nil)))
	}
	return strings.Join(msgs, "; ")
}
