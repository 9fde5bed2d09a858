// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package renderer owns the lifecycle of the generative renderer child
// process: launch with the fixed argument contract, graceful teardown,
// and restart with the bridge rebound to the new process.
package renderer

import "time"

// ProcessState represents the state of the renderer process.
type ProcessState string

const (
	StatusStopped  ProcessState = "stopped"
	StatusStarting ProcessState = "starting"
	StatusRunning  ProcessState = "running"
	StatusStopping ProcessState = "stopping"
	StatusCrashed  ProcessState = "crashed"
)

// Status is a point-in-time snapshot of the renderer process.
type Status struct {
	State     ProcessState `json:"state"`
	PID       int          `json:"pid"`
	ExitCode  int          `json:"exit_code"`
	StartedAt time.Time    `json:"started_at"`
	StoppedAt time.Time    `json:"stopped_at"`
}
