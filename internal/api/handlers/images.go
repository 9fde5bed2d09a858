// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/wingedpig/framegate/internal/bridge"
	"github.com/wingedpig/framegate/internal/images"
)

// ImagesHandler lists and serves input images. Every access resolves
// through the store, which rejects paths outside the image root.
type ImagesHandler struct {
	store  *images.Store
	bridge *bridge.Bridge
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(store *images.Store, br *bridge.Bridge) *ImagesHandler {
	return &ImagesHandler{store: store, bridge: br}
}

// List handles GET /images.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"images":   names,
		"selected": imageName(h.bridge.SelectedImage()),
	})
}

// Serve handles GET /image?name=...; with no name it serves the
// currently selected image.
func (h *ImagesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r)
}

// Thumb handles GET /thumb?name=.... Serving the original file at full
// size; browsers scale it down client-side.
func (h *ImagesHandler) Thumb(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r)
}

func (h *ImagesHandler) serveImage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		selected := h.bridge.SelectedImage()
		if selected == "" {
			WriteError(w, http.StatusNotFound, "no image selected")
			return
		}
		// The selection is stored as an absolute path; serve it
		// relative to the root so nested selections keep working.
		rel, err := filepath.Rel(h.store.Root(), selected)
		if err != nil {
			WriteError(w, http.StatusNotFound, "image not found")
			return
		}
		name = rel
	}

	path, err := h.store.Resolve(name)
	if err != nil {
		// Escapes and unknown names get the same answer; the
		// distinction is not the client's business.
		WriteError(w, http.StatusNotFound, "image not found")
		return
	}

	http.ServeFile(w, r, path)
}
