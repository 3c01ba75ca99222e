// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package main

import (
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
)

// treeWatcher reports changes anywhere below a root directory. fsnotify
// watches are not recursive, so directories created after start are added
// as their Create events arrive.
type treeWatcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger
}

func newTreeWatcher(root string, logger *slog.Logger) (*treeWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, oops.Wrapf(err, "create file watcher")
	}
	w := &treeWatcher{fsw: fsw, logger: logger}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *treeWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return oops.With("path", path).Wrapf(err, "walk plugin tree")
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return oops.With("path", path).Wrapf(err, "watch directory")
		}
		return nil
	})
}

// relevant reports whether ev can change the catalog and starts watching
// directories that ev created.
func (w *treeWatcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Has(fsnotify.Create) {
		// addTree ignores plain files.
		if err := w.addTree(ev.Name); err != nil {
			w.logger.Debug("could not watch new path", "path", ev.Name, "error", err)
		}
	}
	return true
}

func (w *treeWatcher) Events() <-chan fsnotify.Event { return w.fsw.Events }

func (w *treeWatcher) Errors() <-chan error { return w.fsw.Errors }

func (w *treeWatcher) Close() error { return w.fsw.Close() }
