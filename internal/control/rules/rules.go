// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package rules compiles the declarative controls of a widget manifest into
// control.Config values:
//
//   - visibleWhen is an expr boolean expression over the form data
//     (e.g. `mode == "advanced" && len(rooms) > 0`).
//   - transform is a jq program run on {"self": <control>, "data": <form data>};
//     an object result is merged over the control's props, null or false keeps
//     the static control.
//   - onChange is a Lua chunk run in a sandbox with the globals data and
//     set(key, values), which writes into the form configuration state.
//
// Rules are compiled once. Errors raised while a rule runs panic inside the
// generated function so control.Resolve can recover and report them.
package rules

import (
	"encoding/json"
	"time"

	"github.com/samber/oops"

	"github.com/widgetdeck/widgetdeck/internal/control"
	"github.com/widgetdeck/widgetdeck/internal/plugin"
	"github.com/widgetdeck/widgetdeck/internal/sandbox"
)

// Error codes.
const (
	CodeInvalidRule = "INVALID_RULE"
	CodeRuleFailed  = "RULE_FAILED"
)

// Compiler turns control specs into configs.
type Compiler struct {
	states *sandbox.StateFactory
}

// Option configures a Compiler.
type Option func(*compilerConfig)

type compilerConfig struct {
	scriptBudget time.Duration
}

// WithScriptBudget bounds the run time of one onChange script.
func WithScriptBudget(d time.Duration) Option {
	return func(c *compilerConfig) {
		c.scriptBudget = d
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	var cfg compilerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Compiler{states: sandbox.NewStateFactory(cfg.scriptBudget)}
}

// Compile builds the control for spec.
func (c *Compiler) Compile(spec plugin.ControlSpec) (*control.Config, error) {
	if spec.Key == "" {
		return nil, oops.Code(CodeInvalidRule).Errorf("control key is required")
	}

	cfg := &control.Config{
		Key:   spec.Key,
		Type:  spec.Type,
		Label: spec.Label,
		Props: spec.Props,
	}

	if spec.VisibleWhen != "" {
		fn, err := compileVisibility(spec.Key, spec.VisibleWhen)
		if err != nil {
			return nil, err
		}
		cfg.Visibility = fn
	}
	if spec.Transform != "" {
		fn, err := compileTransform(spec.Key, spec.Transform)
		if err != nil {
			return nil, err
		}
		cfg.MapStateToProps = fn
	}
	if spec.OnChange != "" {
		fn, err := c.compileOnChange(spec.Key, spec.OnChange)
		if err != nil {
			return nil, err
		}
		cfg.SetValuesToFormConfig = fn
	}
	return cfg, nil
}

// CompileAll compiles specs in order and fails on the first invalid one.
func (c *Compiler) CompileAll(specs []plugin.ControlSpec) ([]*control.Config, error) {
	seen := make(map[string]struct{}, len(specs))
	out := make([]*control.Config, 0, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec.Key]; dup {
			return nil, oops.Code(CodeInvalidRule).With("control", spec.Key).Errorf("duplicate control key %q", spec.Key)
		}
		seen[spec.Key] = struct{}{}

		cfg, err := c.Compile(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// normalize converts Go values into the plain JSON shapes expected by expr
// environments and gojq inputs.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formEnv(data control.FormData) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	env, err := normalize(data)
	if err != nil {
		panic(oops.Code(CodeRuleFailed).Wrapf(err, "form data is not JSON encodable"))
	}
	m, _ := env.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func selfValue(cfg *control.Config) map[string]any {
	self := map[string]any{
		"key":   cfg.Key,
		"type":  cfg.Type,
		"label": cfg.Label,
		"props": map[string]any{},
	}
	if cfg.Props != nil {
		props, err := normalize(cfg.Props)
		if err != nil {
			panic(oops.Code(CodeRuleFailed).With("control", cfg.Key).Wrapf(err, "props are not JSON encodable"))
		}
		self["props"] = props
	}
	return self
}
