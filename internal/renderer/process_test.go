// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package renderer

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/framegate/internal/logs"
)

func TestProcess_StartAndEcho(t *testing.T) {
	p := NewProcess([]string{"sh", "-c", "read line; echo got $line"}, "", logs.NewBuffer(100))
	require.NoError(t, p.Start(context.Background()))
	require.True(t, p.Alive())
	require.NotZero(t, p.PID())

	require.NoError(t, p.Stdin().WriteLine("hello"))

	scanner := bufio.NewScanner(p.Stdout())
	require.True(t, scanner.Scan())
	assert.Equal(t, "got hello", scanner.Text())

	// Child exits after its echo; the merged pipe reaches EOF.
	assert.False(t, scanner.Scan())

	waitNotAlive(t, p)
	assert.Equal(t, StatusStopped, p.Status().State)
	assert.Equal(t, 0, p.Status().ExitCode)
}

func TestProcess_MergesStderr(t *testing.T) {
	p := NewProcess([]string{"sh", "-c", "echo to-stderr 1>&2"}, "", logs.NewBuffer(100))
	require.NoError(t, p.Start(context.Background()))

	scanner := bufio.NewScanner(p.Stdout())
	require.True(t, scanner.Scan())
	assert.Equal(t, "to-stderr", scanner.Text())
	waitNotAlive(t, p)
}

func TestProcess_StopTerminates(t *testing.T) {
	p := NewProcess([]string{"sleep", "30"}, "", logs.NewBuffer(100))
	require.NoError(t, p.Start(context.Background()))
	require.True(t, p.Alive())

	start := time.Now()
	require.NoError(t, p.Stop(context.Background(), 2*time.Second))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, p.Alive())
	assert.Equal(t, StatusStopped, p.Status().State)
}

func TestProcess_CrashInvokesOnExit(t *testing.T) {
	p := NewProcess([]string{"sh", "-c", "exit 3"}, "", logs.NewBuffer(100))

	crashed := make(chan int, 1)
	p.OnExit(func(code int) { crashed <- code })

	require.NoError(t, p.Start(context.Background()))

	select {
	case code := <-crashed:
		assert.Equal(t, 3, code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for exit callback")
	}
	assert.Equal(t, StatusCrashed, p.Status().State)
}

func TestProcess_StopDoesNotInvokeOnExit(t *testing.T) {
	p := NewProcess([]string{"sleep", "30"}, "", logs.NewBuffer(100))

	crashed := make(chan int, 1)
	p.OnExit(func(code int) { crashed <- code })

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop(context.Background(), 2*time.Second))

	select {
	case <-crashed:
		t.Fatal("OnExit fired for a requested stop")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestProcess_StdinWriteAfterExitFails(t *testing.T) {
	p := NewProcess([]string{"true"}, "", logs.NewBuffer(100))
	require.NoError(t, p.Start(context.Background()))
	waitNotAlive(t, p)

	err := p.Stdin().WriteLine("too late")
	assert.Error(t, err)
}

func TestProcess_StartFailsForMissingBinary(t *testing.T) {
	p := NewProcess([]string{"/nonexistent/renderer-binary"}, "", logs.NewBuffer(100))
	err := p.Start(context.Background())
	require.Error(t, err)
	assert.False(t, p.Alive())
	assert.Equal(t, StatusStopped, p.Status().State)
}

func TestProcess_DoubleStartRejected(t *testing.T) {
	p := NewProcess([]string{"sleep", "30"}, "", logs.NewBuffer(100))
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop(context.Background(), 2*time.Second)

	err := p.Start(context.Background())
	assert.Error(t, err)
}

func waitNotAlive(t *testing.T, p *Process) {
	t.Helper()
	require.Eventually(t, func() bool { return !p.Alive() }, 5*time.Second, 10*time.Millisecond)
}
