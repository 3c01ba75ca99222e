// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package rules

import (
	"context"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/widgetdeck/widgetdeck/internal/control"
	"github.com/widgetdeck/widgetdeck/internal/sandbox"
)

func (c *Compiler) compileOnChange(key, source string) (func(control.Setter, control.FormData), error) {
	chunkName := "onChange:" + key
	chunk, err := parse.Parse(strings.NewReader(source), chunkName)
	if err != nil {
		return nil, oops.Code(CodeInvalidRule).With("control", key).With("rule", "onChange").Wrapf(err, "parse onChange")
	}
	proto, err := lua.Compile(chunk, chunkName)
	if err != nil {
		return nil, oops.Code(CodeInvalidRule).With("control", key).With("rule", "onChange").Wrapf(err, "compile onChange")
	}

	return func(set control.Setter, data control.FormData) {
		if err := c.runOnChange(proto, set, data); err != nil {
			panic(oops.Code(CodeRuleFailed).With("control", key).With("rule", "onChange").Wrap(err))
		}
	}, nil
}

func (c *Compiler) runOnChange(proto *lua.FunctionProto, set control.Setter, data control.FormData) error {
	L, cancel, err := c.states.NewState(context.Background())
	if err != nil {
		return err
	}
	defer cancel()
	defer L.Close()

	// Writes are buffered so a failing script leaves the state untouched.
	type write struct {
		key    string
		values map[string]any
	}
	var writes []write

	L.SetGlobal("data", sandbox.ToLua(L, formEnv(data)))
	L.SetGlobal("set", L.NewFunction(func(L *lua.LState) int {
		target := L.CheckString(1)
		tbl := L.CheckTable(2)
		converted, err := sandbox.FromLua(tbl)
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		values, ok := converted.(map[string]any)
		if !ok {
			L.ArgError(2, "expected a table with string keys")
			return 0
		}
		writes = append(writes, write{key: target, values: values})
		return 0
	}))

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return err
	}

	for _, w := range writes {
		set.SetFormConfig(w.key, w.values)
	}
	return nil
}
