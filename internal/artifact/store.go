// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package artifact locates and streams the renderer's output file. The
// file is continuously overwritten by a live process, so every lookup
// re-reads the filesystem and readers tolerate concurrent writes.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoArtifact is returned when the output directory holds no media file.
var ErrNoArtifact = errors.New("no output artifact found")

// Info identifies one artifact version: path plus the (mtime, size)
// pair clients use to detect change without re-reading content.
type Info struct {
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// Store scans a single output directory for renderer artifacts.
type Store struct {
	dir         string
	currentName string
	extensions  map[string]struct{}
}

// NewStore creates a store over dir. currentName is the canonical
// "live" filename preferred over any other match; extensions filter
// which files count as artifacts.
func NewStore(dir, currentName string, extensions []string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Store{dir: abs, currentName: currentName, extensions: exts}, nil
}

// Dir returns the absolute output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Latest returns the current artifact: the canonically-named live file
// when present, otherwise the most recently modified match anywhere
// under the directory tree. Returns ErrNoArtifact when nothing matches.
func (s *Store) Latest() (Info, error) {
	// The canonical name wins outright.
	if s.currentName != "" {
		path := filepath.Join(s.dir, s.currentName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Info{Path: path, Name: s.currentName, Size: info.Size(), ModTime: info.ModTime()}, nil
		}
	}

	var best Info
	found := false

	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // A file may vanish mid-walk; skip it
		}
		if d.IsDir() || !s.matchExt(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !found || info.ModTime().After(best.ModTime) {
			rel, relErr := filepath.Rel(s.dir, path)
			if relErr != nil {
				rel = d.Name()
			}
			best = Info{Path: path, Name: rel, Size: info.Size(), ModTime: info.ModTime()}
			found = true
		}
		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("scan output dir: %w", err)
	}
	if !found {
		return Info{}, ErrNoArtifact
	}
	return best, nil
}

// Purge removes every entry under the output directory. Only called
// after the renderer has been stopped; the directory itself survives.
func (s *Store) Purge() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read output dir: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("purge %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) matchExt(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
