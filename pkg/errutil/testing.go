// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Context keys attached when a control function fails during resolution.
const (
	ControlKey = "control"
	StageKey   = "stage"
)

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that the deepest code in err's chain is code.
// Wrapping layers that carry a code of their own are hidden behind it, so a
// rule failure recovered by the resolver still reports the rule's code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr := requireOops(t, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v", err)
}

// AssertErrorContext asserts that err carries key=value in the context merged
// across its chain.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	require.Contains(t, ctx, key, "error: %v", err)
	assert.Equal(t, value, ctx[key], "context key %q", key)
}

// AssertControlFailure asserts that err is the Result.Err of a resolution
// whose control function failed: code is the deepest code, and the context
// names the failing control and the stage it failed in.
func AssertControlFailure(t *testing.T, err error, code, control, stage string) {
	t.Helper()
	oopsErr := requireOops(t, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v", err)
	ctx := oopsErr.Context()
	assert.Equal(t, control, ctx[ControlKey], "failing control")
	assert.Equal(t, stage, ctx[StageKey], "failing stage")
}
