// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package rules

import (
	"maps"

	"github.com/itchyny/gojq"
	"github.com/samber/oops"

	"github.com/widgetdeck/widgetdeck/internal/control"
)

func compileTransform(key, source string) (func(*control.Config, control.FormData) *control.Config, error) {
	query, err := gojq.Parse(source)
	if err != nil {
		return nil, oops.Code(CodeInvalidRule).With("control", key).With("rule", "transform").Wrapf(err, "parse transform")
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, oops.Code(CodeInvalidRule).With("control", key).With("rule", "transform").Wrapf(err, "compile transform")
	}

	return func(self *control.Config, data control.FormData) *control.Config {
		input := map[string]any{
			"self": selfValue(self),
			"data": formEnv(data),
		}

		out, ok := code.Run(input).Next()
		if !ok || out == nil || out == false {
			return nil
		}
		if err, isErr := out.(error); isErr {
			panic(oops.Code(CodeRuleFailed).With("control", key).With("rule", "transform").Wrap(err))
		}
		overrides, isMap := out.(map[string]any)
		if !isMap {
			panic(oops.Code(CodeRuleFailed).
				With("control", key).
				With("rule", "transform").
				Errorf("transform must produce an object, got %T", out))
		}

		derived := self.Clone()
		if derived.Props == nil {
			derived.Props = make(map[string]any, len(overrides))
		}
		maps.Copy(derived.Props, overrides)
		return derived
	}, nil
}
