// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logs provides the bounded ring buffer that captures the
// renderer's console output.
package logs

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultCapacity = 400

// Line is a single captured output line with sequence number.
type Line struct {
	Text      string    `json:"text"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}

// Buffer is a thread-safe ring buffer of renderer output lines with
// subscription support. When full, the newest line evicts the oldest.
type Buffer struct {
	mu       sync.RWMutex
	lines    []Line
	capacity int
	size     int
	head     int // next write position
	sequence int64

	subMu       sync.RWMutex
	subscribers map[chan Line]struct{}
}

// NewBuffer creates a new ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Buffer{
		lines:       make([]Line, capacity),
		capacity:    capacity,
		subscribers: make(map[chan Line]struct{}),
	}
}

// Write adds a single line to the buffer and notifies subscribers.
func (b *Buffer) Write(text string) {
	// Truncate very long lines (>1MB) to prevent memory issues
	const maxLineLen = 1024 * 1024
	if len(text) > maxLineLen {
		text = text[:maxLineLen] + "... [truncated]"
	}

	b.mu.Lock()
	b.sequence++
	line := Line{Text: text, Sequence: b.sequence, Timestamp: time.Now()}
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	b.mu.Unlock()

	// Notify subscribers (non-blocking)
	b.subMu.RLock()
	for ch := range b.subscribers {
		select {
		case ch <- line:
		default:
			// Channel full, skip (subscriber too slow)
		}
	}
	b.subMu.RUnlock()
}

// Writef is a printf-style convenience wrapper around Write.
func (b *Buffer) Writef(format string, args ...interface{}) {
	b.Write(fmt.Sprintf(format, args...))
}

// WriteLines splits content by newlines and adds each line.
func (b *Buffer) WriteLines(content string) {
	if content == "" {
		return
	}
	content = strings.TrimSuffix(content, "\n")
	for _, line := range strings.Split(content, "\n") {
		b.Write(line)
	}
}

// Lines returns the last n lines in chronological order.
// If n <= 0 or exceeds the buffer size, all buffered lines are returned.
func (b *Buffer) Lines(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []string{}
	}
	if n <= 0 || n > b.size {
		n = b.size
	}

	result := make([]string, n)
	start := (b.head - n + b.capacity) % b.capacity
	for i := 0; i < n; i++ {
		result[i] = b.lines[(start+i)%b.capacity].Text
	}
	return result
}

// After returns buffered lines with sequence numbers greater than seq,
// in chronological order.
func (b *Buffer) After(seq int64) []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return nil
	}

	var result []Line
	start := (b.head - b.size + b.capacity) % b.capacity
	for i := 0; i < b.size; i++ {
		line := b.lines[(start+i)%b.capacity]
		if line.Sequence > seq {
			result = append(result, line)
		}
	}
	return result
}

// Subscribe returns a channel that receives new lines.
// The channel has a buffer of 100 lines.
func (b *Buffer) Subscribe() chan Line {
	ch := make(chan Line, 100)
	b.subMu.Lock()
	b.subscribers[ch] = struct{}{}
	b.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel.
func (b *Buffer) Unsubscribe(ch chan Line) {
	b.subMu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.subMu.Unlock()
}

// CloseAllSubscribers closes all subscriber channels.
// Used when the renderer process is replaced so orphaned subscribers
// exit cleanly.
func (b *Buffer) CloseAllSubscribers() {
	b.subMu.Lock()
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan Line]struct{})
	b.subMu.Unlock()
}

// Sequence returns the current sequence number.
func (b *Buffer) Sequence() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sequence
}

// Size returns the number of lines in the buffer.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the maximum number of lines the buffer can hold.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Clear removes all lines from the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = 0
	b.head = 0
	for i := range b.lines {
		b.lines[i] = Line{}
	}
}
