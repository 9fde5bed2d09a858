// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wingedpig/framegate/internal/logs"
)

// LogsHandler serves the renderer output ring buffer.
type LogsHandler struct {
	buffer *logs.Buffer
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(buffer *logs.Buffer) *LogsHandler {
	return &LogsHandler{buffer: buffer}
}

// List handles GET /logs: the most recent lines, oldest first.
// ?n=N caps the count; the default is the whole buffer.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	n := h.buffer.Capacity()
	if s := r.URL.Query().Get("n"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			n = v
		}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lines": h.buffer.Lines(n),
	})
}

// Stream handles GET /logs/ws: a WebSocket that first replays the
// buffer, then pushes new lines as the renderer prints them.
func (h *LogsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Replay before subscribing, accepting the small window in which
	// a line can be delivered twice; clients dedupe on sequence.
	seq := h.buffer.Sequence()
	for _, line := range h.buffer.After(0) {
		if err := conn.WriteJSON(line); err != nil {
			return
		}
	}

	ch := h.buffer.Subscribe()
	defer h.buffer.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return
			}
			if line.Sequence <= seq {
				continue
			}
			if err := conn.WriteJSON(line); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
