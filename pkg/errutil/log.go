// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package errutil holds helpers shared by every package that reports oops errors.
package errutil

import (
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. For oops errors the code and context are
// emitted as separate attributes so they can be filtered on.
// A nil logger falls back to slog.Default().
func LogError(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}

// FromPanic converts a value returned by recover() into an oops error carrying
// code. Error values are wrapped so errors.Is keeps working; anything else is
// formatted with %v.
func FromPanic(recovered any, code string) error {
	builder := oops.Code(code).With("panic", fmt.Sprintf("%v", recovered))
	if err, ok := recovered.(error); ok {
		return builder.Wrap(err)
	}
	return builder.Errorf("panic: %v", recovered)
}
