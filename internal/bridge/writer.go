// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"path/filepath"
	"time"
)

// writeLoop answers renderer prompts for the lifetime of one process
// generation. Writing early or out of order corrupts the renderer's
// internal state, so every write is gated on the matching observed
// signal:
//
//  1. An image request preempts command dispatch and is answered
//     immediately; it does not consume from the queue.
//  2. Otherwise the next command is dequeued (with a short poll so
//     image requests interleave promptly).
//  3. The primary token is written only once awaiting == primary, then
//     awaiting is optimistically advanced to secondary; the reader
//     loop's explicit secondary signal confirms or overwrites it.
//  4. The secondary token is written only once awaiting == secondary.
//
// All waits are bounded polls rather than indefinite blocks, which
// keeps restart/stop latency bounded and avoids lost wakeups.
func (b *Bridge) writeLoop(gen uint64, w LineWriter, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		awaiting, ok := b.awaitingFor(gen)
		if !ok {
			return
		}
		if awaiting == SignalAwaitImage {
			if !b.answerImage(gen, w) {
				return
			}
			continue
		}

		cmd, ok, alive := b.dequeue(stop)
		if !alive {
			return
		}
		if !ok {
			continue // poll timeout, re-check for an image request
		}

		if !b.awaitSignal(gen, SignalAwaitPrimary, w, stop) {
			return
		}
		if err := w.WriteLine(cmd.Primary); err != nil {
			b.logf("[framegate] write primary %q: %v", cmd.Primary, err)
			return
		}
		// Optimistic: not every renderer revision announces readiness
		// for the second token. The reader overwrites this if an
		// explicit signal does arrive.
		b.setAwaiting(gen, SignalAwaitSecondary)

		if !b.awaitSignal(gen, SignalAwaitSecondary, w, stop) {
			return
		}
		if err := w.WriteLine(cmd.Secondary); err != nil {
			b.logf("[framegate] write secondary %q: %v", cmd.Secondary, err)
			return
		}
		b.setAwaiting(gen, SignalNone)
	}
}

// dequeue pulls the next command, waiting at most one poll interval.
// alive=false means the stop channel fired.
func (b *Bridge) dequeue(stop <-chan struct{}) (cmd Command, ok, alive bool) {
	timer := time.NewTimer(b.poll)
	defer timer.Stop()

	select {
	case cmd = <-b.queue:
		return cmd, true, true
	case <-stop:
		return Command{}, false, false
	case <-timer.C:
		return Command{}, false, true
	}
}

// awaitSignal polls until the awaiting flag reaches want. An image
// request arriving mid-wait is answered inline; it takes precedence
// over command dispatch. Returns false when the generation went stale
// or stop fired.
func (b *Bridge) awaitSignal(gen uint64, want Signal, w LineWriter, stop <-chan struct{}) bool {
	for {
		awaiting, ok := b.awaitingFor(gen)
		if !ok {
			return false
		}
		if awaiting == want {
			return true
		}
		if awaiting == SignalAwaitImage {
			if !b.answerImage(gen, w) {
				return false
			}
			continue
		}

		select {
		case <-stop:
			return false
		case <-time.After(b.poll):
		}
	}
}

// answerImage resolves and writes the selected image line, then clears
// the image-await flag. Validation failures are logged and the flag
// cleared so the loop does not spin; only a dead pipe (false return)
// terminates the loop.
func (b *Bridge) answerImage(gen uint64, w LineWriter) bool {
	b.mu.Lock()
	path := b.image
	b.mu.Unlock()

	if path == "" {
		b.logf("[framegate] renderer requested an image but none is selected")
		b.setAwaiting(gen, SignalNone)
		return true
	}

	// Re-validate: the file may have vanished since selection.
	resolved, err := b.imageStore.Resolve(path)
	if err != nil {
		b.logf("[framegate] selected image rejected: %v", err)
		b.setAwaiting(gen, SignalNone)
		return true
	}

	line := resolved
	if b.sendName {
		line = filepath.Base(resolved)
	}
	if err := w.WriteLine(line); err != nil {
		b.logf("[framegate] write image path: %v", err)
		return false
	}

	b.mu.Lock()
	if b.generation == gen {
		b.imageSent = true
		if b.awaiting == SignalAwaitImage {
			b.awaiting = SignalNone
		}
	}
	b.mu.Unlock()
	return true
}
