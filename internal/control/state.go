// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package control

import (
	"maps"
	"reflect"
	"sync"
)

// FormConfigState is the per-editor store of control configuration overrides.
// Controls write into it through their side effects; the Resolver merges a
// control's entry into its effective props on the next pass.
//
// FormConfigState is safe for concurrent use.
type FormConfigState struct {
	mu      sync.RWMutex
	entries map[string]map[string]any
	version uint64
}

// NewFormConfigState creates an empty store.
func NewFormConfigState() *FormConfigState {
	return &FormConfigState{entries: make(map[string]map[string]any)}
}

// SetFormConfig merges values into the overrides for key. The version only
// moves when a value actually changes, so repeating a write is free.
func (s *FormConfigState) SetFormConfig(key string, values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries == nil {
		s.entries = make(map[string]map[string]any)
	}
	entry, ok := s.entries[key]
	if !ok {
		entry = make(map[string]any, len(values))
		s.entries[key] = entry
	}

	changed := false
	for k, v := range values {
		if old, exists := entry[k]; exists && reflect.DeepEqual(old, v) {
			continue
		}
		entry[k] = cloneValue(v)
		changed = true
	}
	if changed {
		s.version++
	}
}

// Get returns a copy of the overrides for key.
func (s *FormConfigState) Get(key string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries[key])
}

// Snapshot returns a copy of every entry.
func (s *FormConfigState) Snapshot() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = maps.Clone(v)
	}
	return out
}

// Version increases every time the contents change.
func (s *FormConfigState) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Reset drops every override, e.g. when the editor closes.
func (s *FormConfigState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return
	}
	s.entries = make(map[string]map[string]any)
	s.version++
}
