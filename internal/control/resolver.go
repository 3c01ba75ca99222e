// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package control

import (
	"log/slog"
	"maps"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/widgetdeck/widgetdeck/pkg/errutil"
)

var resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "widgetdeck_control_resolutions_total",
	Help: "Total number of control resolutions by outcome",
}, []string{"outcome"})

// Reporter receives control function failures.
type Reporter func(control string, err error)

// Resolver resolves the controls of one open editor session. It owns the
// session's FormConfigState and skips controls whose config pointer, form
// data and state version are unchanged since their last resolution.
type Resolver struct {
	state    *FormConfigState
	reporter Reporter

	mu   sync.Mutex
	memo map[*Config]memoEntry
}

type memoEntry struct {
	data    FormData
	version uint64
	result  Result
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithReporter replaces the default reporter, which logs through slog.
func WithReporter(r Reporter) ResolverOption {
	return func(res *Resolver) {
		res.reporter = r
	}
}

// WithLogger sets the logger of the default reporter.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(res *Resolver) {
		res.reporter = logReporter(logger)
	}
}

func logReporter(logger *slog.Logger) Reporter {
	return func(_ string, err error) {
		errutil.LogError(logger, "control resolution failed", err)
	}
}

// NewResolver creates a resolver for one editor session. A nil state gets a
// fresh FormConfigState.
func NewResolver(state *FormConfigState, opts ...ResolverOption) *Resolver {
	if state == nil {
		state = NewFormConfigState()
	}
	r := &Resolver{
		state:    state,
		reporter: logReporter(nil),
		memo:     make(map[*Config]memoEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the session's form configuration state.
func (r *Resolver) State() *FormConfigState {
	return r.state
}

// Resolve resolves one control. Overrides stored under the control's key are
// merged over the effective props.
func (r *Resolver) Resolve(cfg *Config, data FormData) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(cfg, data)
}

// ResolveAll resolves controls one after another in order. A failing control
// never stops its siblings.
func (r *Resolver) ResolveAll(cfgs []*Config, data FormData) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]Result, len(cfgs))
	for i, cfg := range cfgs {
		results[i] = r.resolveLocked(cfg, data)
	}
	return results
}

// Invalidate forgets every memoised result.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo = make(map[*Config]memoEntry)
}

func (r *Resolver) resolveLocked(cfg *Config, data FormData) Result {
	if cfg == nil {
		return Resolve(nil, data, r.state)
	}

	if m, ok := r.memo[cfg]; ok && m.version == r.state.Version() && reflect.DeepEqual(m.data, data) {
		resolutions.WithLabelValues("cached").Inc()
		return m.result
	}

	res := Resolve(cfg, data, r.state)
	if res.Err != nil {
		resolutions.WithLabelValues("failed").Inc()
		r.reporter(cfg.Key, res.Err)
	} else {
		resolutions.WithLabelValues("computed").Inc()
	}
	res.Effective = r.applyOverrides(res.Effective)

	// Recorded after the side effect so a control does not invalidate itself.
	r.memo[cfg] = memoEntry{data: data.Clone(), version: r.state.Version(), result: res}
	return res
}

func (r *Resolver) applyOverrides(cfg *Config) *Config {
	overrides := r.state.Get(cfg.Key)
	if len(overrides) == 0 {
		return cfg
	}
	out := cfg.Clone()
	if out.Props == nil {
		out.Props = make(map[string]any, len(overrides))
	}
	maps.Copy(out.Props, overrides)
	return out
}
