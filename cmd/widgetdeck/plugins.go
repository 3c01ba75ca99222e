// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/widgetdeck/widgetdeck/internal/plugin"
)

// PluginInfo is the printable summary of one loaded plugin.
type PluginInfo struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty"`
	IconType    string `json:"icon_type,omitempty" yaml:"icon_type,omitempty"`
	IconBytes   int    `json:"icon_bytes,omitempty" yaml:"icon_bytes,omitempty"`
	Controls    int    `json:"controls" yaml:"controls"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func pluginInfo(d *plugin.Descriptor) PluginInfo {
	info := PluginInfo{Name: d.Name}
	if m, err := d.Manifest(); err == nil {
		info.Version = m.Version
		info.Title = m.Title
		info.Category = m.Category
		info.Description = m.Description
		info.Controls = len(m.Controls)
	}
	if d.Icon != nil {
		info.Icon = d.IconRef()
		info.IconType = d.Icon.MediaType
		info.IconBytes = len(d.Icon.Data)
	}
	return info
}

// NewPluginsCmd creates the plugins subcommand.
func NewPluginsCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the widget plugins found in the plugins directory",
		Long: `Discover widget plugins in the plugins directory, load their manifests
and icons, and list them in discovery order. Plugins whose manifest cannot
be read or parsed are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output, true); err != nil {
				return err
			}

			descriptors, err := a.loadPlugins(cmd.Context())
			if err != nil {
				return err
			}

			infos := make([]PluginInfo, len(descriptors))
			for i, d := range descriptors {
				infos[i] = pluginInfo(d)
			}

			if output == outputTable {
				return writePluginTable(cmd.OutOrStdout(), infos)
			}
			return writeStructured(cmd.OutOrStdout(), output, infos)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, json or yaml)")

	return cmd
}

func writePluginTable(out io.Writer, infos []PluginInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tTITLE\tCONTROLS\tICON")
	for _, info := range infos {
		icon := "-"
		if info.Icon != "" {
			icon = info.Icon
		}
		version := info.Version
		if version == "" {
			version = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", info.Name, version, info.Title, info.Controls, icon)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
