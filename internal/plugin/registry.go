// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin

import (
	"context"
	"path"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Surface selects the asset layout of a front-end.
type Surface string

// Supported surfaces.
const (
	// SurfaceWeb keeps plugins under a root folder: plugins/<name>/config.json.
	SurfaceWeb Surface = "web"
	// SurfaceMobile bundles plugin folders at the top level: <name>/config.json.
	SurfaceMobile Surface = "mobile"
)

// webRoot is the folder holding plugin folders on the web surface.
const webRoot = "plugins"

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	return s == SurfaceWeb || s == SurfaceMobile
}

// nameSegment is the index of the path segment carrying the plugin name.
func (s Surface) nameSegment() int {
	if s == SurfaceMobile {
		return 0
	}
	return 1
}

// pluginDir returns the folder of the named plugin relative to the source root.
func (s Surface) pluginDir(name string) string {
	if s == SurfaceMobile {
		return name
	}
	return path.Join(webRoot, name)
}

// ExtractNames projects asset paths onto plugin names: first-seen order,
// duplicates removed. A path contributes only when the name segment is a
// folder, i.e. it is not the last segment and carries no file extension.
func ExtractNames(paths []string, surface Surface) []string {
	idx := surface.nameSegment()
	seen := make(map[string]struct{})
	names := make([]string, 0)

	for _, p := range paths {
		segs := splitAssetPath(p)
		if len(segs) <= idx+1 {
			continue
		}
		candidate := segs[idx]
		if looksLikeFile(candidate) {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		names = append(names, candidate)
	}
	return names
}

func splitAssetPath(p string) []string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func looksLikeFile(segment string) bool {
	return path.Ext(segment) != ""
}

// Registry is the immutable list of plugin names derived from one listing of
// a Source.
type Registry struct {
	names []string
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	surface Surface
	pattern string
}

// WithRegistrySurface selects the asset layout. Defaults to SurfaceWeb.
func WithRegistrySurface(s Surface) RegistryOption {
	return func(c *registryConfig) {
		c.surface = s
	}
}

// WithAssetPattern only considers asset paths matching a glob. '*' stays
// within one path segment, '**' crosses segments.
func WithAssetPattern(pattern string) RegistryOption {
	return func(c *registryConfig) {
		c.pattern = pattern
	}
}

// NewRegistry lists src once and derives the plugin names.
func NewRegistry(ctx context.Context, src Source, opts ...RegistryOption) (*Registry, error) {
	cfg := registryConfig{surface: SurfaceWeb, pattern: "**"}
	for _, opt := range opts {
		opt(&cfg)
	}

	matcher, err := glob.Compile(cfg.pattern, '/')
	if err != nil {
		return nil, oops.Code(CodeSourceFailed).With("pattern", cfg.pattern).Wrapf(err, "invalid asset pattern")
	}

	paths, err := src.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(paths))
	for _, p := range paths {
		if matcher.Match(strings.TrimPrefix(p, "./")) {
			matched = append(matched, p)
		}
	}

	return &Registry{names: ExtractNames(matched, cfg.surface)}, nil
}

// Names returns a copy of the plugin names in discovery order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// ManifestPattern is the asset glob matching the manifests of one surface.
func ManifestPattern(s Surface, manifestFile string) string {
	return s.pluginDir("*") + "/" + manifestFile
}
