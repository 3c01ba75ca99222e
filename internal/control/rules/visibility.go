// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package rules

import (
	"github.com/expr-lang/expr"
	"github.com/samber/oops"

	"github.com/widgetdeck/widgetdeck/internal/control"
)

func compileVisibility(key, source string) (func(control.FormData) bool, error) {
	program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, oops.Code(CodeInvalidRule).
			With("control", key).
			With("rule", "visibleWhen").
			Wrapf(err, "compile visibleWhen")
	}

	return func(data control.FormData) bool {
		out, err := expr.Run(program, formEnv(data))
		if err != nil {
			panic(oops.Code(CodeRuleFailed).With("control", key).With("rule", "visibleWhen").Wrap(err))
		}
		visible, _ := out.(bool)
		return visible
	}, nil
}
