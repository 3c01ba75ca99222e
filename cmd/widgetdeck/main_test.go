// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/widgetdeck/widgetdeck/internal/plugin"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

const thermostatManifest = `{
  "$schema": "https://widgetdeck.dev/schemas/widget.schema.json",
  "name": "thermostat",
  "version": "1.2.0",
  "title": "Thermostat",
  "icon": "icon.png",
  "controls": [
    {
      "key": "mode",
      "type": "select",
      "props": {"options": ["basic", "advanced"]},
      "onChange": "set('offset', {disabled = data.mode ~= 'advanced'})"
    },
    {
      "key": "offset",
      "type": "number",
      "props": {"min": -5, "max": 5},
      "visibleWhen": "mode != 'off'",
      "transform": "if .data.unit == \"F\" then {max: 9, step: 0.5} else null end"
    }
  ]
}`

// pluginTree lays out a mobile-surface plugin directory.
func pluginTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string][]byte{
		"thermostat/config.json": []byte(thermostatManifest),
		"thermostat/icon.png":    pngHeader,
		"clock/config.json":      []byte(`{"name": "clock", "title": "Clock", "icon": "https://cdn.example.com/clock.svg"}`),
		"broken/config.json":     []byte(`{"name": `),
		"README.md":              []byte("not a plugin"),
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, content, 0o600))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	output, err := run(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"plugins", "schema", "resolve"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
	assert.Contains(t, output, "--plugins-dir")
	assert.Contains(t, output, "--config")
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, err := run(t, "plugins", "--plugins-dir", t.TempDir(), "--surface", "desktop")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "surface")
}

func TestPlugins_Table(t *testing.T) {
	root := pluginTree(t)

	output, err := run(t, "plugins", "--plugins-dir", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "clock"), "discovery order is lexical")
	assert.Contains(t, lines[1], "https://cdn.example.com/clock.svg")
	assert.True(t, strings.HasPrefix(lines[2], "thermostat"))
	assert.Contains(t, lines[2], "1.2.0")
	assert.NotContains(t, output, "broken")
}

func TestPlugins_JSON(t *testing.T) {
	root := pluginTree(t)

	output, err := run(t, "plugins", "--plugins-dir", root, "--output", "json")
	require.NoError(t, err)

	var infos []PluginInfo
	require.NoError(t, json.Unmarshal([]byte(output), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "clock", infos[0].Name)
	assert.Equal(t, PluginInfo{
		Name:      "thermostat",
		Version:   "1.2.0",
		Title:     "Thermostat",
		Icon:      "icon.png",
		IconType:  "image/png",
		IconBytes: len(pngHeader),
		Controls:  2,
	}, infos[1])
}

func TestPlugins_YAML(t *testing.T) {
	root := pluginTree(t)

	output, err := run(t, "plugins", "--plugins-dir", root, "-o", "yaml")
	require.NoError(t, err)

	var infos []PluginInfo
	require.NoError(t, yaml.Unmarshal([]byte(output), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "thermostat", infos[1].Name)
}

func TestPlugins_WebSurface(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "plugins", "clock", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "clock"}`), 0o600))

	output, err := run(t, "plugins", "--plugins-dir", root, "--surface", "web", "-o", "json")
	require.NoError(t, err)

	var infos []PluginInfo
	require.NoError(t, json.Unmarshal([]byte(output), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "clock", infos[0].Name)
}

func TestPlugins_UnknownOutput(t *testing.T) {
	_, err := run(t, "plugins", "--plugins-dir", pluginTree(t), "-o", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestPlugins_MissingDirectory(t *testing.T) {
	_, err := run(t, "plugins", "--plugins-dir", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
}

func TestSchema_Stdout(t *testing.T) {
	output, err := run(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &schema))
	assert.Equal(t, plugin.SchemaID, schema["$id"])
}

func TestSchema_File(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "schemas", "widget.schema.json")

	_, err := run(t, "schema", "--out", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), plugin.SchemaID)
}

func resolveOutput(t *testing.T, args ...string) Resolution {
	t.Helper()
	output, err := run(t, args...)
	require.NoError(t, err)

	var res Resolution
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	return res
}

func TestResolve_EmptyForm(t *testing.T) {
	res := resolveOutput(t, "resolve", "thermostat", "--plugins-dir", pluginTree(t))

	assert.Equal(t, "thermostat", res.Plugin)
	require.Len(t, res.Controls, 2)
	assert.Equal(t, "mode", res.Controls[0].Key)
	assert.True(t, res.Controls[1].Visible)
	assert.Equal(t, map[string]any{"min": -5.0, "max": 5.0, "disabled": true}, res.Controls[1].Props)
	assert.Equal(t, map[string]map[string]any{"offset": {"disabled": true}}, res.FormConfig)
}

func TestResolve_FormDataFile(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(`{"mode": "advanced", "unit": "F"}`), 0o600))

	res := resolveOutput(t, "resolve", "thermostat", "--plugins-dir", pluginTree(t), "--data", dataPath)

	require.Len(t, res.Controls, 2)
	offset := res.Controls[1]
	assert.True(t, offset.Visible)
	assert.Empty(t, offset.Error)
	assert.Equal(t, map[string]any{"min": -5.0, "max": 9.0, "step": 0.5, "disabled": false}, offset.Props)
}

func TestResolve_HiddenControl(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(`{"mode": "off"}`), 0o600))

	res := resolveOutput(t, "resolve", "thermostat", "--plugins-dir", pluginTree(t), "--data", dataPath)

	assert.False(t, res.Controls[1].Visible)
}

func TestResolve_UnknownPlugin(t *testing.T) {
	_, err := run(t, "resolve", "missing", "--plugins-dir", pluginTree(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolve_InvalidFormData(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "form.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(`[1, 2]`), 0o600))

	_, err := run(t, "resolve", "thermostat", "--plugins-dir", pluginTree(t), "--data", dataPath)

	require.Error(t, err)
}

func TestResolve_RejectsTableOutput(t *testing.T) {
	_, err := run(t, "resolve", "thermostat", "--plugins-dir", pluginTree(t), "-o", "table")

	require.Error(t, err)
}
