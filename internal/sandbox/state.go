// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package sandbox provides Lua states restricted to side-effect free
// libraries, used to run control onChange scripts.
package sandbox

import (
	"context"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

// DefaultBudget bounds the run time of one script.
const DefaultBudget = 100 * time.Millisecond

type library struct {
	name string
	fn   lua.LGFunction
}

// Loaded: base, table, string, math. Never loaded: os, io, debug, package.
var safeLibraries = []library{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// Base functions that reach the filesystem or compile arbitrary code.
var blockedBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load", "require"}

// StateFactory creates sandboxed Lua states.
type StateFactory struct {
	budget time.Duration
}

// NewStateFactory creates a factory whose states stop scripts after budget.
// A zero budget means DefaultBudget.
func NewStateFactory(budget time.Duration) *StateFactory {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &StateFactory{budget: budget}
}

// NewState returns a fresh state bound to ctx and the factory's budget. The
// returned cancel func must be called after L.Close.
func (f *StateFactory) NewState(ctx context.Context) (*lua.LState, context.CancelFunc, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range safeLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, nil, oops.With("library", lib.name).Wrapf(err, "open lua library")
		}
	}
	for _, fn := range blockedBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	runCtx, cancel := context.WithTimeout(ctx, f.budget)
	L.SetContext(runCtx)
	return L, cancel, nil
}
