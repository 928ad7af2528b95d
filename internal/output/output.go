// Package output renders command results deterministically. Identical
// queries over identical indexes produce byte-identical output in every
// format, which makes results diffable, cacheable by content, and usable
// in golden tests.
//
// The encoding rules:
//
//  1. Object keys are sorted alphabetically, in JSON and YAML alike.
//  2. Floats round to at most 6 decimal places.
//  3. Nil and omitempty-zero fields are omitted entirely.
//
// Times never appear as time.Time in rendered values; commands format
// them to strings first.
package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects a rendering of command output.
type Format string

const (
	// FormatText is the human-readable default, rendered per command.
	FormatText Format = "text"

	// FormatJSON renders deterministic JSON.
	FormatJSON Format = "json"

	// FormatYAML renders deterministic YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported format: %s (want text, json, or yaml)", s)
}

// Render writes v to w in the given format. FormatText is not handled
// here; commands print their own text and call Render only for the
// structured formats.
func Render(w io.Writer, format Format, v interface{}) error {
	switch format {
	case FormatJSON:
		data, err := DeterministicEncodeIndented(v, "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(normalize(v))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("cannot render format %q here; text output is printed by each command", format)
}
