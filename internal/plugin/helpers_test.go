// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing/fstest"
	"time"

	"github.com/widgetdeck/widgetdeck/internal/plugin"
)

// fakeSource serves an in-memory plugin tree with per-path latency and
// failure injection.
type fakeSource struct {
	fsys fstest.MapFS

	delays map[string]time.Duration
	errs   map[string]error
	// failFirst makes the first n loads of a path fail with a transient error.
	failFirst map[string]int
	// gate, when set, blocks every Load until it is closed.
	gate chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func newFakeSource(files map[string]string) *fakeSource {
	fsys := fstest.MapFS{}
	for p, content := range files {
		fsys[p] = &fstest.MapFile{Data: []byte(content)}
	}
	return &fakeSource{
		fsys:      fsys,
		delays:    map[string]time.Duration{},
		errs:      map[string]error{},
		failFirst: map[string]int{},
		calls:     map[string]int{},
	}
}

func (s *fakeSource) List(ctx context.Context) ([]string, error) {
	return plugin.NewFSSource(s.fsys).List(ctx)
}

func (s *fakeSource) Load(ctx context.Context, p string) ([]byte, error) {
	s.mu.Lock()
	s.calls[p]++
	n := s.calls[p]
	s.mu.Unlock()

	if d := s.delays[p]; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.gate != nil {
		<-s.gate
	}
	if err, ok := s.errs[p]; ok {
		return nil, err
	}
	if n <= s.failFirst[p] {
		return nil, errors.New("transient failure")
	}
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *fakeSource) callCount(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[p]
}

func manifestJSON(name string, extra string) string {
	if extra == "" {
		return fmt.Sprintf(`{"$schema": %q, "name": %q}`, plugin.SchemaID, name)
	}
	return fmt.Sprintf(`{"$schema": %q, "name": %q, %s}`, plugin.SchemaID, name, extra)
}

func names(descs []*plugin.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name
	}
	return out
}
