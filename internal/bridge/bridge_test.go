// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/framegate/internal/images"
	"github.com/wingedpig/framegate/internal/logs"
)

// recordingStdin captures token lines the bridge writes to the fake
// renderer's stdin.
type recordingStdin struct {
	mu    sync.Mutex
	lines []string
	ch    chan string
	err   error
}

func newRecordingStdin() *recordingStdin {
	return &recordingStdin{ch: make(chan string, 32)}
}

func (r *recordingStdin) WriteLine(s string) error {
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	r.lines = append(r.lines, s)
	r.mu.Unlock()
	r.ch <- s
	return nil
}

func (r *recordingStdin) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *recordingStdin) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *recordingStdin) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line on the renderer's stdin")
		return ""
	}
}

func (r *recordingStdin) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected write %q", s)
	case <-time.After(d):
	}
}

// fakeRenderer scripts the child's output side of the protocol.
type fakeRenderer struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newFakeRenderer() *fakeRenderer {
	r, w := io.Pipe()
	return &fakeRenderer{r: r, w: w}
}

func (f *fakeRenderer) prompt(t *testing.T, line string) {
	t.Helper()
	_, err := f.w.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (f *fakeRenderer) exit() {
	f.w.Close()
}

func newTestBridge(t *testing.T) (*Bridge, string) {
	t.Helper()
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("png"), 0o644))

	store, err := images.NewStore(dir, nil)
	require.NoError(t, err)

	b := New(Options{
		Logs:         logs.NewBuffer(100),
		Images:       store,
		PollInterval: 2 * time.Millisecond,
	})
	return b, imgPath
}

func TestBridge_AnswersImageThenCommand(t *testing.T) {
	b, imgPath := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	// Attach force-feeds the image request, so the image line comes
	// first even before the textual prompt shows up.
	assert.Equal(t, imgPath, stdin.next(t))

	child.prompt(t, "Please input the mouse action")
	b.Enqueue(NormalizeCommand("i", "w"))

	assert.Equal(t, "I", stdin.next(t))

	child.prompt(t, "PRESS [W, S, A, D, Q]")
	assert.Equal(t, "W", stdin.next(t))

	// Exactly two token writes after the image answer, in order.
	assert.Equal(t, []string{imgPath, "I", "W"}, stdin.all())
}

func TestBridge_NoWriteBeforeSignal(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	stdin.next(t) // image answer

	// A queued command must sit until the primary prompt is observed.
	b.Enqueue(NormalizeCommand("i", "w"))
	stdin.expectNone(t, 50*time.Millisecond)

	child.prompt(t, "Please input the mouse action")
	assert.Equal(t, "I", stdin.next(t))
}

func TestBridge_CommandsStayFIFO(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	stdin.next(t) // image answer

	b.Enqueue(NormalizeCommand("i", "w"))
	b.Enqueue(NormalizeCommand("k", "s"))

	child.prompt(t, "Please input the mouse action")
	assert.Equal(t, "I", stdin.next(t))
	child.prompt(t, "Please input the movement action")
	assert.Equal(t, "W", stdin.next(t))

	child.prompt(t, "Please input the mouse action")
	assert.Equal(t, "K", stdin.next(t))
	child.prompt(t, "Please input the movement action")
	assert.Equal(t, "S", stdin.next(t))
}

func TestBridge_ImageRerequestPreemptsCommands(t *testing.T) {
	b, imgPath := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	assert.Equal(t, imgPath, stdin.next(t))

	// Mid-session re-request: answered again without consuming the queue.
	b.Enqueue(NormalizeCommand("i", "w"))
	child.prompt(t, "Please input the image path")
	assert.Equal(t, imgPath, stdin.next(t))

	child.prompt(t, "Please input the mouse action")
	assert.Equal(t, "I", stdin.next(t))
}

func TestBridge_DetachDrainsQueue(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	stdin.next(t) // image answer

	b.Enqueue(NormalizeCommand("i", "w"))
	b.Enqueue(NormalizeCommand("k", "s"))

	b.Detach()
	child.exit()

	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, SignalNone, b.Awaiting())

	// Commands enqueued after the detach reach only the new process.
	child2 := newFakeRenderer()
	stdin2 := newRecordingStdin()
	b.Attach(child2.r, stdin2)
	defer b.Detach()
	defer child2.exit()

	stdin2.next(t) // image answer for the new generation

	child2.prompt(t, "Please input the mouse action")
	stdin2.expectNone(t, 50*time.Millisecond) // old commands are gone

	b.Enqueue(NormalizeCommand("j", "a"))
	assert.Equal(t, "J", stdin2.next(t))
}

func TestBridge_StaleReaderCannotTouchNewState(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	stdin.next(t)

	b.Detach()

	// The superseded reader is still draining the old pipe; its
	// transitions must not leak into the detached session state.
	child.prompt(t, "Please input the mouse action")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, SignalNone, b.Awaiting())

	child.exit()
}

func TestBridge_DetachIdempotent(t *testing.T) {
	b, _ := newTestBridge(t)

	b.Detach() // no process attached: no-op
	b.Detach()

	child := newFakeRenderer()
	b.Attach(child.r, newRecordingStdin())
	b.Detach()
	b.Detach()
	child.exit()
}

func TestBridge_DeadPipeStopsWriter(t *testing.T) {
	b, _ := newTestBridge(t)
	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	stdin.fail(errors.New("broken pipe"))

	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	// The failed image write terminates the loop; nothing is recorded
	// and later prompts go unanswered instead of crashing anything.
	child.prompt(t, "Please input the mouse action")
	b.Enqueue(NormalizeCommand("i", "w"))
	stdin.expectNone(t, 50*time.Millisecond)
	assert.Empty(t, stdin.all())
}

func TestBridge_NoImageSelected(t *testing.T) {
	b, _ := newTestBridge(t)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	// The image request cannot be answered; the flag clears so the
	// writer does not spin, and commands still flow afterwards.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, stdin.all())

	_, err := b.SelectImage("image.png")
	require.NoError(t, err)

	child.prompt(t, "Please input the mouse action")
	b.Enqueue(NormalizeCommand("i", "w"))
	assert.Equal(t, "I", stdin.next(t))
}

func TestBridge_SendImageName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644))
	store, err := images.NewStore(dir, nil)
	require.NoError(t, err)

	b := New(Options{
		Logs:         logs.NewBuffer(100),
		Images:       store,
		SendImage:    "name",
		PollInterval: 2 * time.Millisecond,
	})
	_, err = b.SelectImage("image.png")
	require.NoError(t, err)

	child := newFakeRenderer()
	stdin := newRecordingStdin()
	b.Attach(child.r, stdin)
	defer b.Detach()
	defer child.exit()

	assert.Equal(t, "image.png", stdin.next(t))
}

func TestBridge_SelectImageRejectsEscape(t *testing.T) {
	b, _ := newTestBridge(t)

	_, err := b.SelectImage("../../etc/passwd")
	assert.ErrorIs(t, err, images.ErrOutsideRoot)
	assert.Empty(t, b.SelectedImage())
}

func TestBridge_OutputLandsInLogBuffer(t *testing.T) {
	buf := logs.NewBuffer(100)
	dir := t.TempDir()
	store, err := images.NewStore(dir, nil)
	require.NoError(t, err)

	b := New(Options{Logs: buf, Images: store, PollInterval: 2 * time.Millisecond})

	child := newFakeRenderer()
	b.Attach(child.r, newRecordingStdin())
	defer b.Detach()

	child.prompt(t, "loading checkpoint shard 1/12")
	child.prompt(t, "Please input the mouse action")
	child.exit()

	require.Eventually(t, func() bool {
		return buf.Size() == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"loading checkpoint shard 1/12", "Please input the mouse action"}, buf.Lines(0))
}

func TestBridge_SupersededReaderStopsLogging(t *testing.T) {
	buf := logs.NewBuffer(100)
	dir := t.TempDir()
	store, err := images.NewStore(dir, nil)
	require.NoError(t, err)

	b := New(Options{Logs: buf, Images: store, PollInterval: 2 * time.Millisecond})

	child := newFakeRenderer()
	b.Attach(child.r, newRecordingStdin())

	child.prompt(t, "warming up")
	require.Eventually(t, func() bool {
		return buf.Size() == 1
	}, 2*time.Second, 5*time.Millisecond)

	b.Detach()

	// The old process keeps printing after it has been superseded;
	// none of it may land in the log the next session writes to.
	// Both lines go out in one write so the exiting reader drains them.
	child.prompt(t, "stale line one\nstale line two")
	child.exit()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"warming up"}, buf.Lines(0))
}

func TestBridge_QueueFullDropsOldest(t *testing.T) {
	buf := logs.NewBuffer(100)
	dir := t.TempDir()
	store, err := images.NewStore(dir, nil)
	require.NoError(t, err)

	b := New(Options{Logs: buf, Images: store, QueueSize: 2, PollInterval: 2 * time.Millisecond})

	b.Enqueue(NormalizeCommand("a", "a"))
	b.Enqueue(NormalizeCommand("b", "b"))
	b.Enqueue(NormalizeCommand("c", "c"))

	assert.Equal(t, 2, b.Pending())

	// Every dropped command leaves a trace in the log.
	var logged bool
	for _, line := range buf.Lines(0) {
		if strings.Contains(line, "command queue full") {
			logged = true
		}
	}
	assert.True(t, logged, "queue overflow drop was not logged")
}
