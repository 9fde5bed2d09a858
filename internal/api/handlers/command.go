// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wingedpig/framegate/internal/bridge"
)

// CommandHandler accepts control commands for the renderer.
type CommandHandler struct {
	bridge *bridge.Bridge
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(br *bridge.Bridge) *CommandHandler {
	return &CommandHandler{bridge: br}
}

type commandRequest struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Enqueue handles POST /cmd. Missing or empty tokens fall back to the
// neutral defaults, so the endpoint always succeeds; the normalized
// tokens are echoed back.
func (h *CommandHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if r.Body != nil {
		// A malformed body is treated as an empty command rather
		// than rejected; the renderer always needs both tokens.
		json.NewDecoder(r.Body).Decode(&req)
	}

	cmd := bridge.NormalizeCommand(req.Primary, req.Secondary)
	h.bridge.Enqueue(cmd)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"primary":   cmd.Primary,
		"secondary": cmd.Secondary,
		"pending":   h.bridge.Pending(),
	})
}
