// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/widgetdeck/widgetdeck/internal/control"
	"github.com/widgetdeck/widgetdeck/internal/control/rules"
	"github.com/widgetdeck/widgetdeck/internal/plugin"
)

// ControlView is the printable outcome of resolving one control.
type ControlView struct {
	Key     string         `json:"key" yaml:"key"`
	Type    string         `json:"type,omitempty" yaml:"type,omitempty"`
	Label   string         `json:"label,omitempty" yaml:"label,omitempty"`
	Visible bool           `json:"visible" yaml:"visible"`
	Props   map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Resolution is the printable outcome of resolving a plugin's form.
type Resolution struct {
	Plugin     string                    `json:"plugin" yaml:"plugin"`
	Controls   []ControlView             `json:"controls" yaml:"controls"`
	FormConfig map[string]map[string]any `json:"form_config,omitempty" yaml:"form_config,omitempty"`
}

// NewResolveCmd creates the resolve subcommand.
func NewResolveCmd(a *app) *cobra.Command {
	var (
		dataPath string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "resolve <plugin>",
		Short: "Resolve a plugin's configuration controls against form data",
		Long: `Compile the controls declared in a plugin manifest and resolve them
against form data, printing each control's effective props and visibility
together with the form configuration written by onChange rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output, false); err != nil {
				return err
			}

			data, err := readFormData(cmd.InOrStdin(), dataPath)
			if err != nil {
				return err
			}

			descriptors, err := a.loadPlugins(cmd.Context())
			if err != nil {
				return err
			}
			desc := findPlugin(descriptors, args[0])
			if desc == nil {
				return oops.Code("PLUGIN_NOT_FOUND").With("plugin", args[0]).Errorf("plugin %q not found", args[0])
			}

			res, err := resolvePlugin(a, desc, data)
			if err != nil {
				return err
			}
			return writeStructured(cmd.OutOrStdout(), output, res)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "JSON file with form data ('-' reads stdin; default: empty form)")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format (json or yaml)")

	return cmd
}

func findPlugin(descriptors []*plugin.Descriptor, name string) *plugin.Descriptor {
	for _, d := range descriptors {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func readFormData(stdin io.Reader, path string) (control.FormData, error) {
	var raw []byte
	var err error
	switch path {
	case "":
		return control.FormData{}, nil
	case "-":
		raw, err = io.ReadAll(stdin)
	default:
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read form data: %w", err)
	}

	var data control.FormData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("form data must be a JSON object: %w", err)
	}
	if data == nil {
		data = control.FormData{}
	}
	return data, nil
}

func resolvePlugin(a *app, desc *plugin.Descriptor, data control.FormData) (*Resolution, error) {
	manifest, err := desc.Manifest()
	if err != nil {
		return nil, err
	}

	cfgs, err := rules.NewCompiler().CompileAll(manifest.Controls)
	if err != nil {
		return nil, err
	}

	resolver := control.NewResolver(nil, control.WithLogger(a.logger))
	// onChange rules may write overrides for controls resolved before them.
	// A second pass settles the form; the memo makes it a no-op when nothing
	// changed.
	resolver.ResolveAll(cfgs, data)
	results := resolver.ResolveAll(cfgs, data)

	res := &Resolution{
		Plugin:     desc.Name,
		Controls:   make([]ControlView, len(results)),
		FormConfig: resolver.State().Snapshot(),
	}
	for i, r := range results {
		view := ControlView{
			Key:     r.Effective.Key,
			Type:    r.Effective.Type,
			Label:   r.Effective.Label,
			Visible: r.Visible,
			Props:   r.Effective.Props,
		}
		if r.Err != nil {
			view.Error = r.Err.Error()
		}
		res.Controls[i] = view
	}
	return res, nil
}
