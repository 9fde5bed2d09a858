// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package bridge synchronizes client commands with the renderer's
// line-oriented prompt protocol. The renderer has no command framing
// beyond line breaks, so every answer must be written only after the
// matching prompt has been observed, in the exact order the renderer
// expects. The bridge owns that ordering.
package bridge

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/wingedpig/framegate/internal/events"
	"github.com/wingedpig/framegate/internal/images"
	"github.com/wingedpig/framegate/internal/logs"
)

const (
	defaultPollInterval = 10 * time.Millisecond
	defaultQueueSize    = 256

	// How long after attach the image-await flag is re-asserted. Some
	// renderer revisions never print a clean image prompt and must be
	// force-fed shortly after start.
	reassertDelay = 300 * time.Millisecond
)

// LineWriter writes one token line to the renderer's stdin.
type LineWriter interface {
	WriteLine(s string) error
}

// Options configures a Bridge.
type Options struct {
	Classifier   *Classifier
	Logs         *logs.Buffer
	Bus          events.EventBus
	Images       *images.Store
	SendImage    string // "path" writes the full path, "name" the basename
	PollInterval time.Duration
	QueueSize    int
}

// Bridge holds the session state shared between the reader and writer
// loops: the awaiting flag, the FIFO command queue, and the currently
// selected input image. One Bridge lives for the whole service; the
// renderer process behind it is replaced wholesale on restart and each
// replacement bumps the generation counter, so loops bound to a
// superseded process detect staleness instead of trusting flags alone.
type Bridge struct {
	classifier *Classifier
	logBuf     *logs.Buffer
	bus        events.EventBus
	imageStore *images.Store
	sendName   bool
	poll       time.Duration

	mu         sync.Mutex
	awaiting   Signal
	generation uint64
	image      string // absolute path of the selected input image
	imageSent  bool   // image answered at least once this generation
	queue      chan Command
	stop       chan struct{} // closed on detach; nil when no process attached
	stdin      LineWriter
}

// New creates a Bridge. The queue capacity and poll interval fall back
// to defaults when unset.
func New(opts Options) *Bridge {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Classifier == nil {
		opts.Classifier = defaultClassifier()
	}
	return &Bridge{
		classifier: opts.Classifier,
		logBuf:     opts.Logs,
		bus:        opts.Bus,
		imageStore: opts.Images,
		sendName:   opts.SendImage == "name",
		poll:       opts.PollInterval,
		queue:      make(chan Command, opts.QueueSize),
	}
}

// Attach binds the bridge to a freshly started renderer process and
// spawns its reader and writer loops. The awaiting flag is optimistically
// set to image immediately, and re-asserted once after a short delay in
// case the first prompt never arrives in recognizable form. Returns the
// new generation number.
func (b *Bridge) Attach(stdout io.Reader, stdin LineWriter) uint64 {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.awaiting = SignalAwaitImage
	b.imageSent = false
	b.stdin = stdin
	b.stop = make(chan struct{})
	stop := b.stop
	b.mu.Unlock()

	go b.readLoop(gen, stdout)
	go b.writeLoop(gen, stdin, stop)

	time.AfterFunc(reassertDelay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.generation == gen && !b.imageSent {
			b.awaiting = SignalAwaitImage
		}
	})

	return gen
}

// Detach unbinds the bridge from the current process: the writer loop
// is signalled to exit, the awaiting flag is cleared, and all pending
// commands are discarded (they were bound to the old session). The
// reader loop exits on its own when the process's output pipe closes.
// Idempotent.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stop == nil {
		return
	}
	close(b.stop)
	b.stop = nil
	b.stdin = nil
	b.generation++ // supersede any loop still running
	b.awaiting = SignalNone
	b.imageSent = false

	// Drain the queue.
	for {
		select {
		case <-b.queue:
		default:
			return
		}
	}
}

// Enqueue appends a command to the FIFO queue. When the queue is full
// the oldest pending command is dropped to make room; command delivery
// is best-effort by design and a stalled renderer should not wedge
// clients.
func (b *Bridge) Enqueue(cmd Command) {
	select {
	case b.queue <- cmd:
	default:
		select {
		case dropped := <-b.queue:
			b.logf("[framegate] command queue full, dropped (%s,%s)", dropped.Primary, dropped.Secondary)
		default:
		}
		select {
		case b.queue <- cmd:
		default:
			// Lost the race to a concurrent producer; the new
			// command is the casualty this time.
			b.logf("[framegate] command queue full, dropped (%s,%s)", cmd.Primary, cmd.Secondary)
		}
	}

	b.publish(events.EventCommandEnqueued, map[string]interface{}{
		"primary":   cmd.Primary,
		"secondary": cmd.Secondary,
	})
}

// SelectImage validates name against the image root and adopts it as
// the session's input image. Returns the resolved absolute path.
func (b *Bridge) SelectImage(name string) (string, error) {
	path, err := b.imageStore.Resolve(name)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.image = path
	b.mu.Unlock()

	b.publish(events.EventImageSelected, map[string]interface{}{
		"image": filepath.Base(path),
	})
	return path, nil
}

// SelectedImage returns the absolute path of the current input image,
// or "" when none has been selected.
func (b *Bridge) SelectedImage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.image
}

// Awaiting returns the current awaiting state.
func (b *Bridge) Awaiting() Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaiting
}

// Pending returns the number of queued commands.
func (b *Bridge) Pending() int {
	return len(b.queue)
}

// Generation returns the current process generation.
func (b *Bridge) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// current reports whether gen is still the live generation.
func (b *Bridge) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation == gen
}

// setAwaiting transitions the awaiting flag, but only if gen is still
// the live generation.
func (b *Bridge) setAwaiting(gen uint64, s Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != gen {
		return
	}
	b.awaiting = s
}

// awaitingFor returns the awaiting flag, or ok=false if gen is stale.
func (b *Bridge) awaitingFor(gen uint64) (Signal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != gen {
		return SignalNone, false
	}
	return b.awaiting, true
}

func (b *Bridge) logf(format string, args ...interface{}) {
	if b.logBuf != nil {
		b.logBuf.Writef(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

func (b *Bridge) publish(eventType string, payload map[string]interface{}) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(context.Background(), events.Event{Type: eventType, Payload: payload})
}
