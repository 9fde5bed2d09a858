// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package images manages the input image directory the renderer is
// allowed to read from. Every lookup is containment-checked against
// the root so request paths can never escape it.
package images

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrOutsideRoot is returned when a path resolves outside the image root.
var ErrOutsideRoot = errors.New("path resolves outside the image directory")

// ErrNotFound is returned when an image does not exist.
var ErrNotFound = errors.New("image not found")

// Entry describes one image file under the root.
type Entry struct {
	Name    string    `json:"name"` // Path relative to the root
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// Store serves input images from a single root directory.
type Store struct {
	root       string
	extensions map[string]struct{}
}

// NewStore creates a store rooted at dir. Extensions filter listings;
// an empty list allows any file.
func NewStore(dir string, extensions []string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve image dir: %w", err)
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Store{root: abs, extensions: exts}, nil
}

// Root returns the absolute image root directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a name (relative or absolute) to an absolute path inside
// the root. It returns ErrOutsideRoot for escapes and ErrNotFound when
// the file does not exist.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrNotFound
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	if !s.contains(path) {
		return "", ErrOutsideRoot
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}

	return path, nil
}

// List returns all matching images under the root, sorted by name.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if !s.matchExt(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		entries = append(entries, Entry{
			Name:    rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk image dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// contains reports whether path lies inside the root.
func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Store) matchExt(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
