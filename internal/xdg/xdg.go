// Package xdg resolves XDG Base Directory locations for widgetdeck.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "widgetdeck"

func base(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
}

// ConfigDir returns $XDG_CONFIG_HOME/widgetdeck, defaulting to ~/.config/widgetdeck.
func ConfigDir() string {
	return filepath.Join(base("XDG_CONFIG_HOME", ".config"), appName)
}

// DataDir returns $XDG_DATA_HOME/widgetdeck, defaulting to ~/.local/share/widgetdeck.
func DataDir() string {
	return filepath.Join(base("XDG_DATA_HOME", ".local", "share"), appName)
}

// ConfigFile is the default location of config.yaml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// PluginsDir is the default root scanned for widget plugins.
func PluginsDir() string {
	return filepath.Join(DataDir(), "plugins")
}
