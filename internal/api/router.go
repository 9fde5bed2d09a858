// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api provides the HTTP surface of framegate: command and
// restart endpoints, artifact streaming, and the WebSocket feeds.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/framegate/internal/api/handlers"
	"github.com/wingedpig/framegate/internal/api/middleware"
	"github.com/wingedpig/framegate/internal/artifact"
	"github.com/wingedpig/framegate/internal/bridge"
	"github.com/wingedpig/framegate/internal/events"
	"github.com/wingedpig/framegate/internal/images"
	"github.com/wingedpig/framegate/internal/logs"
	"github.com/wingedpig/framegate/internal/renderer"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host    string
	Port    int
	TLSCert string // Path to TLS certificate file
	TLSKey  string // Path to TLS private key file
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Manager   *renderer.Manager
	Bridge    *bridge.Bridge
	Artifacts *artifact.Store
	Images    *images.Store
	LogBuffer *logs.Buffer
	EventBus  events.EventBus
}

// NewRouter creates a new API router. The control endpoints live at
// the root, matching what the browser front end expects.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	commandHandler := handlers.NewCommandHandler(deps.Bridge)
	r.HandleFunc("/cmd", commandHandler.Enqueue).Methods("POST")

	rendererHandler := handlers.NewRendererHandler(deps.Manager, deps.Bridge, deps.Artifacts, deps.Images.Root())
	r.HandleFunc("/restart", rendererHandler.Restart).Methods("POST")
	r.HandleFunc("/meta", rendererHandler.Meta).Methods("GET")
	r.HandleFunc("/healthz", rendererHandler.Healthz).Methods("GET")

	artifactHandler := handlers.NewArtifactHandler(deps.Artifacts)
	r.HandleFunc("/current.{ext:[a-zA-Z0-9]+}", artifactHandler.Current).Methods("GET", "HEAD")

	logsHandler := handlers.NewLogsHandler(deps.LogBuffer)
	r.HandleFunc("/logs", logsHandler.List).Methods("GET")
	r.HandleFunc("/logs/ws", logsHandler.Stream).Methods("GET")

	imagesHandler := handlers.NewImagesHandler(deps.Images, deps.Bridge)
	r.HandleFunc("/images", imagesHandler.List).Methods("GET")
	r.HandleFunc("/image", imagesHandler.Serve).Methods("GET")
	r.HandleFunc("/thumb", imagesHandler.Thumb).Methods("GET")

	eventHandler := handlers.NewEventHandler(deps.EventBus)
	r.HandleFunc("/events", eventHandler.History).Methods("GET")
	r.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the server. If TLS is configured (tls_cert and
// tls_key), uses HTTPS.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	tlsEnabled, err := CheckTLSConfig(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	if tlsEnabled {
		certPath := expandPath(s.cfg.TLSCert)
		keyPath := expandPath(s.cfg.TLSKey)
		log.Printf("API server listening on https://%s (TLS enabled)", addr)
		return s.server.ListenAndServeTLS(certPath, keyPath)
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
