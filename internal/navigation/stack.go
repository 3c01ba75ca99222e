// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package navigation tracks the nested dashboards a user has drilled into.
//
// A Stack only grows by appending an unseen entry and only shrinks by
// truncating back to an entry already on it, or by clearing it outright.
// Entries are never reordered or removed from the middle.
package navigation

import (
	"maps"
	"sync"
)

// Entry is one visited dashboard. ID identifies it on the stack; Metadata
// is carried along for breadcrumbs and is not interpreted.
type Entry struct {
	ID       string         `json:"id" yaml:"id"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (e Entry) clone() Entry {
	if e.Metadata != nil {
		e.Metadata = maps.Clone(e.Metadata)
	}
	return e
}

// Stack is the navigation path of one browsing session. It is safe for
// concurrent use; each SetPath and ClearPaths is applied atomically.
type Stack struct {
	mu        sync.Mutex
	paths     []Entry
	observers map[int]func([]Entry)
	nextID    int

	// notifyMu keeps observer calls in transition order.
	notifyMu sync.Mutex
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{observers: make(map[int]func([]Entry))}
}

// SetPath records a visit to entry. An entry already on the stack truncates
// the stack to end at it; any other entry is appended. A nil entry or one
// without an ID is ignored.
func (s *Stack) SetPath(entry *Entry) {
	if entry == nil || entry.ID == "" {
		return
	}
	e := entry.clone()
	s.apply(func(paths []Entry) ([]Entry, bool) {
		for i := range paths {
			if paths[i].ID == e.ID {
				if i == len(paths)-1 {
					return paths, false
				}
				clear(paths[i+1:])
				return paths[:i+1], true
			}
		}
		return append(paths, e), true
	})
}

// ClearPaths empties the stack.
func (s *Stack) ClearPaths() {
	s.apply(func(paths []Entry) ([]Entry, bool) {
		return nil, len(paths) > 0
	})
}

// Paths returns a copy of the current stack, root first.
func (s *Stack) Paths() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the depth of the stack.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Subscribe registers fn to receive the stack after every transition that
// changed it. The returned func unsubscribes.
func (s *Stack) Subscribe(fn func([]Entry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observers == nil {
		s.observers = make(map[int]func([]Entry))
	}
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Stack) apply(transition func([]Entry) ([]Entry, bool)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, changed := transition(s.paths)
	s.paths = next
	if !changed || len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}
	observers := make([]func([]Entry), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(append([]Entry(nil), snapshot...))
	}
}

func (s *Stack) snapshotLocked() []Entry {
	out := make([]Entry, len(s.paths))
	for i, e := range s.paths {
		out[i] = e.clone()
	}
	return out
}
