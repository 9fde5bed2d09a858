// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the framegate components together and owns the
// service lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/framegate/internal/api"
	"github.com/wingedpig/framegate/internal/artifact"
	"github.com/wingedpig/framegate/internal/bridge"
	"github.com/wingedpig/framegate/internal/config"
	"github.com/wingedpig/framegate/internal/events"
	"github.com/wingedpig/framegate/internal/images"
	"github.com/wingedpig/framegate/internal/logs"
	"github.com/wingedpig/framegate/internal/renderer"
)

// App is the main application container.
type App struct {
	mu sync.RWMutex

	configPath string
	version    string
	config     *config.Config

	eventBus   events.EventBus
	logBuffer  *logs.Buffer
	imageStore *images.Store
	bridge     *bridge.Bridge
	artifacts  *artifact.Store
	watcher    *artifact.Watcher
	manager    *renderer.Manager
	apiServer  *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Version    string
}

// New creates a new App instance: loads and validates configuration,
// and builds the event bus. Component construction happens in
// Initialize so tests can inspect the loaded config first.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		done:       make(chan struct{}),
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.config = cfg

	// Override host/port if specified
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	return app, nil
}

// Config returns the loaded configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	app.logBuffer = logs.NewBuffer(cfg.Bridge.LogBufferSize)

	imageStore, err := images.NewStore(cfg.Images.Dir, cfg.Images.Extensions)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}
	app.imageStore = imageStore

	if err := os.MkdirAll(cfg.Renderer.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	artifacts, err := artifact.NewStore(cfg.Renderer.OutputDir, cfg.Artifacts.CurrentName, cfg.Artifacts.Extensions)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	app.artifacts = artifacts

	app.bridge = bridge.New(bridge.Options{
		Classifier:   bridge.NewClassifier(cfg.Bridge.Prompts),
		Logs:         app.logBuffer,
		Bus:          app.eventBus,
		Images:       imageStore,
		SendImage:    cfg.Bridge.SendImage,
		PollInterval: config.ParseDuration(cfg.Bridge.PollInterval, 10*time.Millisecond),
		QueueSize:    cfg.Bridge.QueueSize,
	})

	app.manager = renderer.NewManager(cfg.Renderer, app.bridge, app.logBuffer, app.eventBus, artifacts)

	app.watcher = artifact.NewWatcher(artifacts, app.eventBus,
		config.ParseDuration(cfg.Artifacts.Debounce, 100*time.Millisecond))

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		TLSCert: cfg.Server.TLSCert,
		TLSKey:  cfg.Server.TLSKey,
	}, api.Dependencies{
		Manager:   app.manager,
		Bridge:    app.bridge,
		Artifacts: artifacts,
		Images:    imageStore,
		LogBuffer: app.logBuffer,
		EventBus:  app.eventBus,
	})

	return nil
}

// Start launches the renderer (when a default image is configured)
// and the API server.
func (app *App) Start(ctx context.Context) error {
	if err := app.watcher.Start(); err != nil {
		log.Printf("Warning: artifact watcher failed to start: %v", err)
	}

	// The renderer needs an input image to start; without a default
	// it stays down until the first /restart supplies one.
	if img := app.config.Images.Default; img != "" {
		if err := app.manager.Start(ctx, img); err != nil {
			log.Printf("Warning: renderer did not start: %v", err)
		}
	} else {
		log.Printf("No default image configured; renderer idle until /restart")
	}

	go func() {
		log.Printf("Starting API server on %s:%d", app.config.Server.Host, app.config.Server.Port)
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	return nil
}

// Run starts the app and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop API server first to stop accepting new requests
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	if app.watcher != nil {
		app.watcher.Stop()
	}

	if app.manager != nil {
		if err := app.manager.Stop(shutdownCtx); err != nil {
			log.Printf("Error stopping renderer: %v", err)
		}
	}

	if app.logBuffer != nil {
		app.logBuffer.CloseAllSubscribers()
	}

	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
