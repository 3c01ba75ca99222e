// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package sandbox

import (
	"fmt"
	"sort"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

// ToLua converts JSON-like Go values into Lua values. Unsupported types are
// passed as their fmt representation.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]any:
		tbl := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.RawSetString(k, ToLua(L, val[k]))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(ToLua(L, item))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(lua.LString(item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// MaxDepth bounds how deeply FromLua descends into nested tables.
const MaxDepth = 32

// CodeValueInvalid marks a Lua value that cannot be converted.
const CodeValueInvalid = "SCRIPT_VALUE_INVALID"

// FromLua converts a Lua value back into JSON-like Go values. Tables with
// keys 1..n become []any, every other table becomes map[string]any. Tables
// that contain themselves or nest deeper than MaxDepth are rejected.
func FromLua(v lua.LValue) (any, error) {
	c := converter{path: make(map[*lua.LTable]struct{})}
	return c.value(v, 0)
}

// converter tracks the tables on the current descent path. A table shared by
// two branches is fine; one reached again from inside itself is a cycle.
type converter struct {
	path map[*lua.LTable]struct{}
}

func (c *converter) value(v lua.LValue, depth int) (any, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(val), nil
	case lua.LString:
		return string(val), nil
	case lua.LNumber:
		return float64(val), nil
	case *lua.LTable:
		return c.table(val, depth)
	default:
		return val.String(), nil
	}
}

func (c *converter) table(tbl *lua.LTable, depth int) (any, error) {
	if depth >= MaxDepth {
		return nil, oops.Code(CodeValueInvalid).With("max_depth", MaxDepth).Errorf("table nested deeper than %d levels", MaxDepth)
	}
	if _, seen := c.path[tbl]; seen {
		return nil, oops.Code(CodeValueInvalid).Errorf("table contains itself")
	}
	c.path[tbl] = struct{}{}
	defer delete(c.path, tbl)

	n := tbl.MaxN()
	count := 0
	tbl.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n > 0 && n == count {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			item, err := c.value(tbl.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}

	out := make(map[string]any, count)
	var firstErr error
	tbl.ForEach(func(k, v lua.LValue) {
		if firstErr != nil {
			return
		}
		item, err := c.value(v, depth+1)
		if err != nil {
			firstErr = err
			return
		}
		out[k.String()] = item
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
