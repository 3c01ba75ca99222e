// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin

import (
	"context"
	"io/fs"
	"os"

	"github.com/samber/oops"
)

// Source is the discovery capability supplied by the host: it enumerates
// asset paths and loads the bytes behind one of them. Paths are slash
// separated and relative to the source root.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// FSSource serves plugin assets from an fs.FS.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource wraps fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource serves plugin assets from a directory on disk.
func NewDirSource(root string) *FSSource {
	return NewFSSource(os.DirFS(root))
}

// List returns every regular file in lexical walk order.
func (s *FSSource) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code(CodeSourceFailed).Wrapf(err, "list plugin assets")
	}
	return paths, nil
}

// Load reads one asset. A missing file surfaces as fs.ErrNotExist.
func (s *FSSource) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, path)
	if err != nil {
		return nil, oops.Code(CodeSourceFailed).With("path", path).Wrapf(err, "load asset")
	}
	return data, nil
}
