// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/framegate/internal/artifact"
)

// ArtifactHandler serves the renderer's live output file.
type ArtifactHandler struct {
	store *artifact.Store
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(store *artifact.Store) *ArtifactHandler {
	return &ArtifactHandler{store: store}
}

// Current handles GET/HEAD /current.<ext>. The path extension is
// cosmetic: whatever the newest artifact is gets served, with Range
// support and no caching since the file is rewritten continuously.
func (h *ArtifactHandler) Current(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Latest()
	if err != nil {
		WriteError(w, http.StatusNotFound, "no output artifact yet")
		return
	}
	artifact.ServeRange(w, r, info)
}
