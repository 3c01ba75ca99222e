// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validateOutput(format string, table bool) error {
	switch format {
	case outputJSON, outputYAML:
		return nil
	case outputTable:
		if table {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to format YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		return nil
	}
}
