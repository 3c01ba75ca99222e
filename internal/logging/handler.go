// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package logging configures the structured slog logger shared by the CLI and
// the plugin framework, correlating records with OpenTelemetry spans.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Options selects the output of Setup.
type Options struct {
	Service string
	Version string
	// Format is "json" or "text"; empty means json.
	Format string
	// Level is one of debug, info, warn, error; empty means info.
	Level string
}

// correlatingHandler stamps every record with the service identity and, when
// the context carries a span, its trace and span ids.
type correlatingHandler struct {
	next    slog.Handler
	service string
	version string
}

func (h *correlatingHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.next.Handle(ctx, r)
}

func (h *correlatingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *correlatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlatingHandler{next: h.next.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *correlatingHandler) WithGroup(name string) slog.Handler {
	return &correlatingHandler{next: h.next.WithGroup(name), service: h.service, version: h.version}
}

// ParseLevel maps a config string onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, oops.Code("CONFIG_INVALID").
			With("log_level", s).
			Errorf("unknown log level %q", s)
	}
}

// Setup builds a logger writing to w (os.Stderr when nil). An unknown level
// degrades to info.
func Setup(opts Options, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if opts.Format == "text" {
		base = slog.NewTextHandler(w, handlerOpts)
	} else {
		base = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(&correlatingHandler{next: base, service: opts.Service, version: opts.Version})
}

// SetDefault installs a logger built by Setup as the slog default and returns it.
func SetDefault(opts Options) *slog.Logger {
	logger := Setup(opts, nil)
	slog.SetDefault(logger)
	return logger
}
