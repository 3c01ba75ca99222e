// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/widgetdeck/widgetdeck/internal/config"
	"github.com/widgetdeck/widgetdeck/internal/logging"
	"github.com/widgetdeck/widgetdeck/internal/plugin"
)

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the widgetdeck CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "widgetdeck",
		Short: "WidgetDeck - dashboard widget plugin tooling",
		Long: `WidgetDeck discovers dashboard widget plugins, loads their manifests
and resolves their configuration controls against form data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/widgetdeck/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewPluginsCmd(a))
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewResolveCmd(a))
	cmd.AddCommand(NewWatchCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Setup(logging.Options{
		Service: "widgetdeck",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	}, cmd.ErrOrStderr())
	return nil
}

// loadPlugins discovers plugin names and loads their manifests in discovery
// order. Plugins that fail to load are logged and left out.
func (a *app) loadPlugins(ctx context.Context) ([]*plugin.Descriptor, error) {
	src := a.cfg.Source()
	surface := a.cfg.PluginSurface()

	registry, err := plugin.NewRegistry(ctx, src,
		plugin.WithRegistrySurface(surface),
		plugin.WithAssetPattern(plugin.ManifestPattern(surface, a.cfg.ManifestFile)),
	)
	if err != nil {
		return nil, err
	}

	opts := append(a.cfg.LoaderOptions(), plugin.WithLogger(a.logger))
	loader := plugin.NewLoader(src, opts...)
	defer loader.Close()

	descriptors := loader.LoadAll(ctx, registry.Names())
	a.logger.DebugContext(ctx, "plugins loaded",
		"discovered", len(registry.Names()),
		"loaded", len(descriptors),
	)
	return descriptors, nil
}
