package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/jbossfacts/pkg/config"
)

// writeFacts prints fact values in the requested format. In facter format a
// single requested fact is printed as its bare value.
func writeFacts(w io.Writer, format string, values map[string]string, single bool) error {
	switch format {
	case config.FormatJSON:
		return writeJSON(w, values)
	case config.FormatYAML:
		if len(values) == 0 {
			_, err := fmt.Fprintln(w, "{}")
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(values); err != nil {
			return fmt.Errorf("failed to encode facts: %w", err)
		}
		return enc.Close()
	default:
		if single && len(values) == 1 {
			for _, v := range values {
				_, err := fmt.Fprintln(w, v)
				return err
			}
		}
		for _, name := range slices.Sorted(maps.Keys(values)) {
			if _, err := fmt.Fprintf(w, "%s => %s\n", name, values[name]); err != nil {
				return err
			}
		}
		return nil
	}
}

// writeJSON prints any value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
