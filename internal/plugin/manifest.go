// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

// Package plugin discovers dashboard widget plugins and resolves their
// config.json manifests into descriptors.
package plugin

import (
	"encoding/json"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// SchemaKey is the reserved manifest key pointing editors at the JSON schema.
// It is removed before a manifest is used.
const SchemaKey = "$schema"

// Manifest is the typed view of the well-known keys of a config.json. Widgets
// may carry any further keys; they are preserved in Descriptor.Config.
type Manifest struct {
	Name        string        `json:"name" jsonschema:"pattern=^[a-z]([a-z0-9-]*[a-z0-9])?$,maxLength=64"`
	Version     string        `json:"version,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	Icon        string        `json:"icon,omitempty" jsonschema:"description=Icon path relative to the plugin folder or an absolute URL"`
	Controls    []ControlSpec `json:"controls,omitempty"`
}

// ControlSpec declares one control of the widget configuration form. The rule
// fields are compiled by the control/rules package.
type ControlSpec struct {
	Key         string         `json:"key"`
	Type        string         `json:"type"`
	Label       string         `json:"label,omitempty"`
	Props       map[string]any `json:"props,omitempty"`
	VisibleWhen string         `json:"visibleWhen,omitempty" jsonschema:"description=expr boolean evaluated against the form data"`
	Transform   string         `json:"transform,omitempty" jsonschema:"description=jq program over {self, data} returning prop overrides"`
	OnChange    string         `json:"onChange,omitempty" jsonschema:"description=Lua chunk with globals data and set(key, values)"`
}

// Descriptor is one resolved widget plugin. It is never mutated after the
// loader publishes it.
type Descriptor struct {
	Name   string
	Config map[string]any
	Icon   *Icon
}

// Icon is either a URL the front-end fetches itself or icon bytes read from
// the plugin folder.
type Icon struct {
	URL       string
	Data      []byte
	MediaType string
}

// IconRef returns the manifest's icon reference, if any.
func (d *Descriptor) IconRef() string {
	ref, _ := d.Config["icon"].(string)
	return ref
}

// Manifest decodes the descriptor's config into the typed view.
func (d *Descriptor) Manifest() (*Manifest, error) {
	return DecodeManifest(d.Config)
}

const maxNameLength = 64

var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest decodes a config.json document, strips SchemaKey and checks
// the keys the framework itself depends on: a non-empty string name and, if
// present, a string icon. Everything else is the widget's business.
func ParseManifest(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, oops.Code(CodeManifestEmpty).Errorf("manifest data is empty")
	}

	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, oops.Code(CodeManifestInvalid).Wrapf(err, "invalid JSON")
	}
	if cfg == nil {
		return nil, oops.Code(CodeManifestInvalid).Errorf("manifest must be a JSON object")
	}
	delete(cfg, SchemaKey)

	name, _ := cfg["name"].(string)
	if name == "" {
		return nil, oops.Code(CodeManifestInvalid).
			With("name", cfg["name"]).
			Errorf("name must be a non-empty string")
	}
	if raw, ok := cfg["icon"]; ok {
		if _, isString := raw.(string); !isString {
			return nil, oops.Code(CodeManifestInvalid).With("name", name).Errorf("icon must be a string")
		}
	}
	return cfg, nil
}

// CheckConventions applies the publishing conventions on top of what
// ParseManifest accepts: a lowercase hyphenated name of at most 64
// characters and a semantic version. The loader runs it only when schema
// validation is enabled.
func CheckConventions(cfg map[string]any) error {
	name, _ := cfg["name"].(string)
	if !namePattern.MatchString(name) {
		return oops.Code(CodeManifestInvalid).
			With("name", cfg["name"]).
			Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", name)
	}
	if len(name) > maxNameLength {
		return oops.Code(CodeManifestInvalid).
			With("name", name).
			Errorf("name must be %d characters or less, got %d", maxNameLength, len(name))
	}

	if raw, ok := cfg["version"]; ok {
		version, isString := raw.(string)
		if !isString {
			return oops.Code(CodeManifestInvalid).With("name", name).Errorf("version must be a string")
		}
		if _, err := semver.NewVersion(version); err != nil {
			return oops.Code(CodeManifestInvalid).With("name", name).With("version", version).Wrapf(err, "invalid version")
		}
	}
	return nil
}

// DecodeManifest converts a parsed config into the typed Manifest view.
func DecodeManifest(cfg map[string]any) (*Manifest, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, oops.Code(CodeManifestInvalid).Wrapf(err, "encode manifest")
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, oops.Code(CodeManifestInvalid).With("name", cfg["name"]).Wrapf(err, "decode manifest")
	}
	return &m, nil
}
