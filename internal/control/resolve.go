// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package control

import (
	"github.com/samber/oops"

	"github.com/widgetdeck/widgetdeck/pkg/errutil"
)

// Result is the outcome of resolving one control.
type Result struct {
	Effective *Config
	Visible   bool
	// Err is set when a control function panicked. Effective and Visible
	// then hold the static fallback.
	Err error
}

// Resolve computes the effective configuration and visibility of cfg for
// data, then runs the control's side effect when data, set and the effective
// SetValuesToFormConfig are all present. A panic in any control function is
// recovered into Result.Err and the result falls back to the static config,
// visible. A nil cfg resolves to an empty, visible config.
func Resolve(cfg *Config, data FormData, set Setter) (res Result) {
	if cfg == nil {
		return Result{Effective: &Config{}, Visible: true}
	}

	stage := StageMapStateToProps
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Effective: cfg,
				Visible:   true,
				Err: oops.
					With("control", cfg.Key).
					With("stage", stage).
					Wrap(errutil.FromPanic(r, CodeFuncPanic)),
			}
		}
	}()

	effective := cfg
	if cfg.MapStateToProps != nil {
		if derived := cfg.MapStateToProps(cfg, data); derived != nil {
			effective = derived
		}
	}

	stage = StageVisibility
	visible := true
	if effective.Visibility != nil {
		visible = effective.Visibility(data)
	}

	stage = StageSetValues
	if data != nil && set != nil && effective.SetValuesToFormConfig != nil {
		effective.SetValuesToFormConfig(set, data)
	}

	return Result{Effective: effective, Visible: visible}
}
