// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteAndLines(t *testing.T) {
	b := NewBuffer(10)

	b.Write("one")
	b.Write("two")
	b.Write("three")

	assert.Equal(t, 3, b.Size())
	assert.Equal(t, []string{"one", "two", "three"}, b.Lines(0))
	assert.Equal(t, []string{"two", "three"}, b.Lines(2))
}

func TestBuffer_EvictsOldest(t *testing.T) {
	b := NewBuffer(3)

	for i := 1; i <= 5; i++ {
		b.Write(fmt.Sprintf("line-%d", i))
	}

	assert.Equal(t, 3, b.Size())
	assert.Equal(t, []string{"line-3", "line-4", "line-5"}, b.Lines(0))
}

func TestBuffer_WriteLines(t *testing.T) {
	b := NewBuffer(10)

	b.WriteLines("a\nb\nc\n")

	assert.Equal(t, []string{"a", "b", "c"}, b.Lines(0))
}

func TestBuffer_After(t *testing.T) {
	b := NewBuffer(10)

	b.Write("one")
	b.Write("two")
	b.Write("three")

	lines := b.After(1)
	require.Len(t, lines, 2)
	assert.Equal(t, "two", lines[0].Text)
	assert.Equal(t, "three", lines[1].Text)
	assert.Equal(t, int64(3), lines[1].Sequence)

	assert.Empty(t, b.After(3))
}

func TestBuffer_AfterEvicted(t *testing.T) {
	b := NewBuffer(2)

	b.Write("one")
	b.Write("two")
	b.Write("three")

	// "one" has been evicted; only the surviving lines come back.
	lines := b.After(0)
	require.Len(t, lines, 2)
	assert.Equal(t, "two", lines[0].Text)
}

func TestBuffer_Subscribe(t *testing.T) {
	b := NewBuffer(10)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Write("hello")

	select {
	case line := <-ch:
		assert.Equal(t, "hello", line.Text)
		assert.Equal(t, int64(1), line.Sequence)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed line")
	}
}

func TestBuffer_CloseAllSubscribers(t *testing.T) {
	b := NewBuffer(10)

	ch := b.Subscribe()
	b.CloseAllSubscribers()

	_, open := <-ch
	assert.False(t, open)

	// Writes after closing must not panic.
	b.Write("still fine")
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(10)

	b.Write("one")
	b.Write("two")
	b.Clear()

	assert.Equal(t, 0, b.Size())
	assert.Empty(t, b.Lines(0))

	// Sequence keeps counting after a clear.
	b.Write("three")
	assert.Equal(t, int64(3), b.Sequence())
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, defaultCapacity, b.Capacity())
}
