// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/widgetdeck/widgetdeck/internal/observability"
	"github.com/widgetdeck/widgetdeck/internal/plugin"
	"github.com/widgetdeck/widgetdeck/pkg/errutil"
)

// Default values for watch command flags.
const (
	defaultMetricsAddr   = "127.0.0.1:9464"
	defaultWatchInterval = 30 * time.Second
	defaultWatchDebounce = 250 * time.Millisecond
)

type watchConfig struct {
	metricsAddr string
	interval    time.Duration
	debounce    time.Duration
}

// Validate checks that the configuration is valid.
func (cfg *watchConfig) Validate() error {
	if cfg.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.interval)
	}
	if cfg.debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", cfg.debounce)
	}
	return nil
}

// NewWatchCmd creates the watch subcommand.
func NewWatchCmd(a *app) *cobra.Command {
	cfg := &watchConfig{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the plugin catalog on change and serve metrics",
		Long: `Reload the plugin catalog whenever a file under the plugins directory
changes, logging plugins that appear or disappear, while serving Prometheus
metrics and health probes. A full resync also runs every --interval in case
a change notification was missed. Readiness turns green once the first
catalog is published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, cfg, nil)
		},
	}

	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().DurationVar(&cfg.interval, "interval", defaultWatchInterval, "time between full catalog resyncs")
	cmd.Flags().DurationVar(&cfg.debounce, "debounce", defaultWatchDebounce, "quiet period after a file change before reloading")

	return cmd
}

// runWatch reloads the catalog until ctx is done. onPublish, when set, is
// called with the metrics address and the names of every published catalog.
// Bursts of file events collapse into one reload once cfg.debounce passes
// without further events.
func runWatch(ctx context.Context, a *app, cfg *watchConfig, onPublish func(addr string, names []string)) error {
	var ready atomic.Bool

	addr := ""
	if cfg.metricsAddr != "" {
		server := observability.NewServer(cfg.metricsAddr, ready.Load, observability.WithLogger(a.logger))
		errCh, err := server.Start()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				errutil.LogError(a.logger, "failed to stop observability server", err)
			}
		}()
		go func() {
			for err := range errCh {
				errutil.LogError(a.logger, "observability server failed", err)
			}
		}()
		addr = server.Addr()
	}

	var previous []string
	reload := func() {
		descriptors, err := a.loadPlugins(ctx)
		if err != nil {
			if ctx.Err() == nil {
				errutil.LogError(a.logger, "plugin catalog reload failed", err)
			}
			return
		}
		names := descriptorNames(descriptors)
		logCatalogChanges(a, previous, names)
		previous = names
		ready.Store(true)
		if onPublish != nil {
			onPublish(addr, names)
		}
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	tree, err := newTreeWatcher(a.cfg.PluginsDir, a.logger)
	if err != nil {
		a.logger.Warn("file watching disabled, falling back to periodic resync",
			"plugins_dir", a.cfg.PluginsDir, "error", err)
	} else {
		defer func() { _ = tree.Close() }()
		events, watchErrs = tree.Events(), tree.Errors()
	}

	reload()

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()
	debounce := time.NewTimer(cfg.debounce)
	debounce.Stop()
	defer debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reload()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if tree.relevant(ev) {
				debounce.Reset(cfg.debounce)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			errutil.LogError(a.logger, "plugin tree watcher error", err)
		case <-debounce.C:
			a.logger.Debug("plugin tree changed, reloading")
			reload()
		}
	}
}

func descriptorNames(descriptors []*plugin.Descriptor) []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}

func logCatalogChanges(a *app, previous, current []string) {
	for _, name := range current {
		if !slices.Contains(previous, name) {
			a.logger.Info("plugin added", "plugin", name)
		}
	}
	for _, name := range previous {
		if !slices.Contains(current, name) {
			a.logger.Info("plugin removed", "plugin", name)
		}
	}
	if !slices.Equal(previous, current) {
		a.logger.Info("plugin catalog published", "plugins", len(current))
	}
}
