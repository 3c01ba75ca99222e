// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package config loads widgetdeck settings from defaults, an optional YAML
// file and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/widgetdeck/widgetdeck/internal/logging"
	"github.com/widgetdeck/widgetdeck/internal/plugin"
	"github.com/widgetdeck/widgetdeck/internal/xdg"
)

// CodeInvalid marks configuration that failed to load or validate.
const CodeInvalid = "CONFIG_INVALID"

// Config holds the settings shared by every widgetdeck command.
type Config struct {
	// PluginsDir is the root of the plugin asset tree.
	PluginsDir     string `koanf:"plugins_dir"`
	Surface        string `koanf:"surface"`
	ManifestFile   string `koanf:"manifest_file"`
	LogFormat      string `koanf:"log_format"`
	LogLevel       string `koanf:"log_level"`
	ValidateSchema bool   `koanf:"validate_schema"`
	Retry          Retry  `koanf:"retry"`
}

// Retry controls how often a failing manifest or icon read is attempted.
type Retry struct {
	Attempts uint64        `koanf:"attempts"`
	Base     time.Duration `koanf:"base"`
}

// Defaults returns the settings used when neither file nor flags set a key.
func Defaults() map[string]any {
	return map[string]any{
		"plugins_dir":     xdg.PluginsDir(),
		"surface":         string(plugin.SurfaceMobile),
		"manifest_file":   plugin.DefaultManifestFile,
		"log_format":      "text",
		"log_level":       "info",
		"validate_schema": false,
		"retry.attempts":  uint64(1),
		"retry.base":      100 * time.Millisecond,
	}
}

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	"plugins-dir":     "plugins_dir",
	"surface":         "surface",
	"manifest-file":   "manifest_file",
	"log-format":      "log_format",
	"log-level":       "log_level",
	"validate-schema": "validate_schema",
	"retry-attempts":  "retry.attempts",
	"retry-base":      "retry.base",
}

// RegisterFlags declares the flags Load reads. Flag defaults mirror
// Defaults so help output shows the effective values.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("plugins-dir", d["plugins_dir"].(string), "root of the plugin asset tree")
	flags.String("surface", d["surface"].(string), "asset layout: web or mobile")
	flags.String("manifest-file", d["manifest_file"].(string), "manifest file name inside each plugin folder")
	flags.String("log-format", d["log_format"].(string), "log format (json or text)")
	flags.String("log-level", d["log_level"].(string), "log level (debug, info, warn, error)")
	flags.Bool("validate-schema", false, "validate manifests against the widget JSON schema")
	flags.Uint64("retry-attempts", d["retry.attempts"].(uint64), "attempts per manifest or icon read")
	flags.Duration("retry-base", d["retry.base"].(time.Duration), "base delay of the exponential retry backoff")
}

// Load layers defaults, the YAML file at path and the changed flags.
// An empty path falls back to the XDG config file, which may be absent; an
// explicit path must exist. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "load defaults")
	}

	explicit := path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.PluginsDir == "" {
		return oops.Code(CodeInvalid).With("key", "plugins_dir").Errorf("plugins_dir is required")
	}
	if !plugin.Surface(c.Surface).Valid() {
		return oops.Code(CodeInvalid).With("key", "surface").Errorf("surface must be 'web' or 'mobile', got %q", c.Surface)
	}
	if c.ManifestFile == "" || strings.ContainsAny(c.ManifestFile, `/\`) {
		return oops.Code(CodeInvalid).With("key", "manifest_file").Errorf("manifest_file must be a bare file name, got %q", c.ManifestFile)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code(CodeInvalid).With("key", "log_format").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.With("key", "log_level").Wrap(err)
	}
	if c.Retry.Attempts == 0 {
		return oops.Code(CodeInvalid).With("key", "retry.attempts").Errorf("retry.attempts must be at least 1")
	}
	if c.Retry.Attempts > 1 && c.Retry.Base <= 0 {
		return oops.Code(CodeInvalid).With("key", "retry.base").Errorf("retry.base must be positive when retrying")
	}
	return nil
}

// PluginSurface returns the configured surface.
func (c *Config) PluginSurface() plugin.Surface {
	return plugin.Surface(c.Surface)
}

// Source opens the plugin asset tree.
func (c *Config) Source() plugin.Source {
	return plugin.NewDirSource(c.PluginsDir)
}

// LoaderOptions translates the settings into plugin loader options.
func (c *Config) LoaderOptions() []plugin.LoaderOption {
	opts := []plugin.LoaderOption{
		plugin.WithSurface(c.PluginSurface()),
		plugin.WithManifestFile(c.ManifestFile),
		plugin.WithRetry(c.Retry.Attempts, c.Retry.Base),
	}
	if c.ValidateSchema {
		opts = append(opts, plugin.WithSchemaValidation())
	}
	return opts
}
