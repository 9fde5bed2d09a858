// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/wingedpig/framegate/internal/artifact"
	"github.com/wingedpig/framegate/internal/bridge"
	"github.com/wingedpig/framegate/internal/renderer"
)

// RendererHandler exposes renderer lifecycle and status endpoints.
type RendererHandler struct {
	manager   *renderer.Manager
	bridge    *bridge.Bridge
	artifacts *artifact.Store
	imageDir  string
}

// NewRendererHandler creates a new renderer handler.
func NewRendererHandler(mgr *renderer.Manager, br *bridge.Bridge, artifacts *artifact.Store, imageDir string) *RendererHandler {
	return &RendererHandler{manager: mgr, bridge: br, artifacts: artifacts, imageDir: imageDir}
}

type restartRequest struct {
	Image string `json:"image"`
	Purge bool   `json:"purge"`
}

// Restart handles POST /restart: stop the current renderer (if any),
// optionally purge the output directory, and start a fresh one. An
// invalid image path is a client error and nothing is restarted.
func (h *RendererHandler) Restart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.manager.Restart(r.Context(), req.Image, req.Purge); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"image":  imageName(h.bridge.SelectedImage()),
		"purged": req.Purge,
	})
}

// Meta handles GET /meta: the artifact version tag (name, size, mtime)
// when one exists, or the selected image so the front end can show a
// placeholder while the renderer warms up.
func (h *RendererHandler) Meta(w http.ResponseWriter, r *http.Request) {
	info, err := h.artifacts.Latest()
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"exists": false,
			"image":  imageName(h.bridge.SelectedImage()),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"exists": true,
		"name":   info.Name,
		"size":   info.Size,
		"mtime":  info.ModTime,
	})
}

// Healthz handles GET /healthz.
func (h *RendererHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"proc_alive": h.manager.Alive(),
		"state":      h.manager.Status().State,
		"output_dir": h.artifacts.Dir(),
		"image_dir":  h.imageDir,
		"image":      imageName(h.bridge.SelectedImage()),
	})
}

// imageName reduces a selected image path to its basename, keeping the
// empty string empty (nothing selected yet).
func imageName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
