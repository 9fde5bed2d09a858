// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package renderer

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/wingedpig/framegate/internal/artifact"
	"github.com/wingedpig/framegate/internal/bridge"
	"github.com/wingedpig/framegate/internal/config"
	"github.com/wingedpig/framegate/internal/events"
	"github.com/wingedpig/framegate/internal/logs"
)

// Manager owns the renderer process lifecycle: spawning, attaching the
// I/O bridge, and restart-with-purge. All operations are serialized so
// overlapping restarts cannot race.
type Manager struct {
	cfg       config.RendererConfig
	bridge    *bridge.Bridge
	logBuf    *logs.Buffer
	bus       events.EventBus
	artifacts *artifact.Store

	stopTimeout time.Duration

	mu   sync.Mutex
	proc *Process
}

// NewManager creates a renderer manager.
func NewManager(cfg config.RendererConfig, br *bridge.Bridge, logBuf *logs.Buffer, bus events.EventBus, artifacts *artifact.Store) *Manager {
	return &Manager{
		cfg:         cfg,
		bridge:      br,
		logBuf:      logBuf,
		bus:         bus,
		artifacts:   artifacts,
		stopTimeout: config.ParseDuration(cfg.StopTimeout, 5*time.Second),
	}
}

// buildArgs assembles the renderer command line from configuration.
func (m *Manager) buildArgs() []string {
	args := append([]string{}, m.cfg.GetCommand()...)
	if m.cfg.ConfigPath != "" {
		args = append(args, "--config_path", m.cfg.ConfigPath)
	}
	if m.cfg.CheckpointPath != "" {
		args = append(args, "--checkpoint_path", m.cfg.CheckpointPath)
	}
	if m.cfg.OutputDir != "" {
		args = append(args, "--output_folder", m.cfg.OutputDir)
	}
	args = append(args, "--seed", strconv.Itoa(m.cfg.Seed))
	if m.cfg.PretrainedDir != "" {
		args = append(args, "--pretrained_model_path", m.cfg.PretrainedDir)
	}
	return args
}

// Start launches the renderer with the given input image and attaches
// the bridge to its pipes. The image may be empty to keep the bridge's
// current selection.
func (m *Manager) Start(ctx context.Context, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx, image)
}

func (m *Manager) startLocked(ctx context.Context, image string) error {
	if m.proc != nil && m.proc.Alive() {
		return fmt.Errorf("renderer already running (pid %d)", m.proc.PID())
	}

	if image != "" {
		if _, err := m.bridge.SelectImage(image); err != nil {
			return fmt.Errorf("selecting image %q: %w", image, err)
		}
	}

	args := m.buildArgs()
	if len(args) == 0 {
		return fmt.Errorf("renderer command not configured")
	}

	proc := NewProcess(args, m.cfg.WorkDir, m.logBuf)
	proc.OnExit(func(code int) {
		// The callback can race a concurrent restart: by the time it
		// runs, a new process may already own the bridge. Tear the
		// session down only if this process is still the current one.
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.proc != proc {
			return
		}
		m.bridge.Detach()
		m.publish(events.EventRendererCrashed, map[string]interface{}{
			"exit_code": code,
		})
	})

	if err := proc.Start(ctx); err != nil {
		return fmt.Errorf("starting renderer: %w", err)
	}

	m.proc = proc
	m.bridge.Attach(proc.Stdout(), proc.Stdin())

	m.publish(events.EventRendererStarted, map[string]interface{}{
		"pid":  proc.PID(),
		"args": args,
	})
	return nil
}

// Stop detaches the bridge and terminates the renderer. Safe to call
// when nothing is running.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	if m.proc == nil {
		return nil
	}

	// Detach first so the bridge's writer cannot race the teardown.
	m.bridge.Detach()

	err := m.proc.Stop(ctx, m.stopTimeout)
	status := m.proc.Status()
	m.proc = nil

	m.publish(events.EventRendererStopped, map[string]interface{}{
		"exit_code": status.ExitCode,
	})
	return err
}

// Restart stops the current renderer (if any), optionally purges the
// artifact directory, and starts a fresh one with the given image. The
// image selection lands before the stop so the new loop's image request
// is answered with the new selection.
func (m *Manager) Restart(ctx context.Context, image string, purge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if image != "" {
		if _, err := m.bridge.SelectImage(image); err != nil {
			return fmt.Errorf("selecting image %q: %w", image, err)
		}
	}

	if err := m.stopLocked(ctx); err != nil {
		m.logBuf.Writef("Restart: stop failed: %v", err)
	}

	if purge && m.artifacts != nil {
		if err := m.artifacts.Purge(); err != nil {
			m.logBuf.Writef("Restart: artifact purge failed: %v", err)
		} else {
			m.publish(events.EventArtifactPurged, nil)
		}
	}

	return m.startLocked(ctx, "")
}

// Alive reports whether the renderer process is up. The exec.Cmd view
// is cross-checked against the process table, since a wedged child can
// hold Wait open after the kernel has reaped it.
func (m *Manager) Alive() bool {
	m.mu.Lock()
	proc := m.proc
	m.mu.Unlock()

	if proc == nil || !proc.Alive() {
		return false
	}
	p, err := ps.FindProcess(proc.PID())
	if err != nil {
		// Process table unreadable; trust the handle.
		return true
	}
	return p != nil
}

// Status returns the current process status, or a zero stopped status
// when nothing has been started.
func (m *Manager) Status() Status {
	m.mu.Lock()
	proc := m.proc
	m.mu.Unlock()

	if proc == nil {
		return Status{State: StatusStopped}
	}
	return proc.Status()
}

// PID returns the renderer's process ID, or 0.
func (m *Manager) PID() int {
	m.mu.Lock()
	proc := m.proc
	m.mu.Unlock()

	if proc == nil {
		return 0
	}
	return proc.PID()
}

func (m *Manager) publish(eventType string, payload map[string]interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(context.Background(), events.Event{Type: eventType, Payload: payload})
}
