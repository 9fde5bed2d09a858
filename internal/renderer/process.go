// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package renderer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/framegate/internal/logs"
)

const defaultStopTimeout = 5 * time.Second

// Process manages a single renderer child process. Stderr is merged
// into stdout: the renderer prints prompts and diagnostics to both and
// the bridge classifies the combined stream.
type Process struct {
	args    []string
	workDir string
	logBuf  *logs.Buffer

	mu            sync.RWMutex
	cmd           *exec.Cmd
	state         ProcessState
	pid           int
	exitCode      int
	startedAt     time.Time
	stoppedAt     time.Time
	stopRequested bool
	isRunning     bool

	stdin    *StdinWriter
	stdout   *os.File
	onExit   func(int)
	cancelFn context.CancelFunc
	waitDone chan struct{}
}

// StdinWriter guards the child's stdin pipe with a mutex and a closed
// flag so a late write after process death fails cleanly instead of
// hitting a closed file.
type StdinWriter struct {
	mu     sync.Mutex
	w      *os.File
	closed bool
}

// WriteLine writes one token line to the child's stdin.
func (sw *StdinWriter) WriteLine(s string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return fmt.Errorf("stdin pipe closed")
	}
	_, err := sw.w.WriteString(s + "\n")
	return err
}

func (sw *StdinWriter) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.closed {
		sw.w.Close()
		sw.closed = true
	}
}

// NewProcess creates a renderer process with a fully-built argument
// list and working directory. Nothing runs until Start.
func NewProcess(args []string, workDir string, logBuf *logs.Buffer) *Process {
	return &Process{
		args:    args,
		workDir: workDir,
		logBuf:  logBuf,
		state:   StatusStopped,
	}
}

// Start launches the process. It returns once the child is spawned;
// readiness is the bridge's business, not ours.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("renderer already running")
	}
	if len(p.args) == 0 {
		return fmt.Errorf("empty renderer command")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancelFn = cancel

	cmd := exec.CommandContext(runCtx, p.args[0], p.args[1:]...)
	cmd.Dir = p.workDir

	// New process group so a kill reaches the renderer's own children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = os.Environ()

	// Merge stdout and stderr into one pipe for the bridge.
	outR, outW, err := os.Pipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	inR, inW, err := os.Pipe()
	if err != nil {
		cancel()
		outR.Close()
		outW.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	cmd.Stdin = inR

	p.logf("[framegate] Starting renderer: %v (workdir: %s)", p.args, p.workDir)

	p.state = StatusStarting
	if err := cmd.Start(); err != nil {
		cancel()
		outR.Close()
		outW.Close()
		inR.Close()
		inW.Close()
		p.state = StatusStopped
		p.logf("[framegate] Failed to start renderer: %v", err)
		return fmt.Errorf("start renderer: %w", err)
	}

	// Parent-side copies of the child's ends must close so EOF
	// propagates when the child exits.
	outW.Close()
	inR.Close()

	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.startedAt = time.Now()
	p.exitCode = 0
	p.isRunning = true
	p.state = StatusRunning
	p.stdout = outR
	p.stdin = &StdinWriter{w: inW}
	p.waitDone = make(chan struct{})

	go p.waitForExit()

	return nil
}

// Stdout returns the merged output stream of the child. Valid between
// Start and process exit; the reader observes EOF at death.
func (p *Process) Stdout() *os.File {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stdout
}

// Stdin returns the guarded line writer for the child's stdin.
func (p *Process) Stdin() *StdinWriter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stdin
}

// Stop terminates the process gracefully: SIGTERM to the process
// group, wait up to timeout, then SIGKILL. No-op if not running.
func (p *Process) Stop(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.state = StatusStopping
	p.stopRequested = true
	cmd := p.cmd
	waitDone := p.waitDone
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	pgid := cmd.Process.Pid
	syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-waitDone:
	case <-time.After(timeout):
		syscall.Kill(-pgid, syscall.SIGKILL)
		<-waitDone
	case <-ctx.Done():
		syscall.Kill(-pgid, syscall.SIGKILL)
		<-waitDone
	}

	return nil
}

// Status returns the current process status.
func (p *Process) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Status{
		State:     p.state,
		PID:       p.pid,
		ExitCode:  p.exitCode,
		StartedAt: p.startedAt,
		StoppedAt: p.stoppedAt,
	}
}

// PID returns the child's process ID, or 0 when not running.
func (p *Process) PID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.isRunning {
		return 0
	}
	return p.pid
}

// Alive reports whether the child process is currently running.
func (p *Process) Alive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}

// OnExit sets a callback invoked when the process exits without a stop
// having been requested (a crash).
func (p *Process) OnExit(fn func(int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExit = fn
}

func (p *Process) waitForExit() {
	cmd := p.cmd
	err := cmd.Wait()

	p.mu.Lock()
	p.isRunning = false
	p.stoppedAt = time.Now()

	if err != nil {
		p.logf("[framegate] Renderer exited with error: %v", err)
	} else {
		p.logf("[framegate] Renderer exited cleanly")
	}
	wasStopRequested := p.stopRequested

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			p.exitCode = exitErr.ExitCode()
		} else {
			p.exitCode = -1
		}
		if wasStopRequested {
			p.state = StatusStopped
		} else {
			p.state = StatusCrashed
		}
	} else {
		p.exitCode = 0
		p.state = StatusStopped
	}

	exitCode := p.exitCode
	onExit := p.onExit
	cancelFn := p.cancelFn
	waitDone := p.waitDone
	stdin := p.stdin
	p.cmd = nil
	p.pid = 0
	p.stopRequested = false
	p.mu.Unlock()

	// Closing stdin releases any writer still holding the pipe.
	if stdin != nil {
		stdin.Close()
	}
	if cancelFn != nil {
		cancelFn()
	}
	close(waitDone)

	if onExit != nil && !wasStopRequested {
		onExit(exitCode)
	}
}

func (p *Process) logf(format string, args ...interface{}) {
	if p.logBuf != nil {
		p.logBuf.Writef(format, args...)
	}
}
