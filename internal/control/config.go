// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package control resolves widget configuration form controls against the
// current form data: derived configuration, visibility and side effects into
// the shared form configuration state.
package control

import "maps"

// FormData holds the current values of the configuration form, by field key.
type FormData map[string]any

// Get returns the value for key, nil when absent.
func (d FormData) Get(key string) any {
	return d[key]
}

// Clone returns a deep copy of the maps and slices in d.
func (d FormData) Clone() FormData {
	if d == nil {
		return nil
	}
	out := make(FormData, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case FormData:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Setter writes configuration overrides for the control identified by key.
type Setter interface {
	SetFormConfig(key string, values map[string]any)
}

// Config is the author-supplied description of one control. The three
// function fields are optional.
type Config struct {
	Key   string
	Type  string
	Label string
	Props map[string]any

	// MapStateToProps derives the effective configuration. Returning nil
	// keeps the static configuration.
	MapStateToProps func(self *Config, data FormData) *Config
	// Visibility reports whether the control is shown. Nil means always.
	Visibility func(data FormData) bool
	// SetValuesToFormConfig may write overrides for any control through set.
	// It must be idempotent for identical data.
	SetValuesToFormConfig func(set Setter, data FormData)
}

// Clone copies c with its own Props map. Function fields are shared.
func (c *Config) Clone() *Config {
	out := *c
	out.Props = maps.Clone(c.Props)
	return &out
}
