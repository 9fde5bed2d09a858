// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *MemoryEventBus {
	return NewMemoryEventBus(MemoryBusConfig{
		HistoryMaxEvents: 100,
		HistoryMaxAge:    time.Hour,
	})
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		eventType string
		pattern   string
		want      bool
	}{
		{"renderer.started", "renderer.started", true},
		{"renderer.started", "renderer.*", true},
		{"renderer.crashed", "renderer.*", true},
		{"artifact.updated", "renderer.*", false},
		{"artifact.updated", "*.updated", true},
		{"renderer.started", "*", true},
		{"renderer.started", "", false},
		{"", "*", false},
		{"renderer.started", "renderer", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchPattern(tt.eventType, tt.pattern),
			"MatchPattern(%q, %q)", tt.eventType, tt.pattern)
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var received atomic.Int32
	_, err := bus.Subscribe("renderer.*", func(ctx context.Context, e Event) error {
		received.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventRendererStarted}))
	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventArtifactUpdated}))

	assert.Equal(t, int32(1), received.Load())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var received atomic.Int32
	id, err := bus.Subscribe("*", func(ctx context.Context, e Event) error {
		received.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Unsubscribe(id))
	assert.ErrorIs(t, bus.Unsubscribe(id), ErrSubscriptionNotFound)

	bus.Publish(context.Background(), Event{Type: EventRendererStarted})
	assert.Equal(t, int32(0), received.Load())
}

func TestBus_AssignsIDAndTimestamp(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var got Event
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		got = e
		return nil
	})

	bus.Publish(context.Background(), Event{Type: EventRendererStarted})

	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestBus_History(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	bus.Publish(context.Background(), Event{Type: EventRendererStarted})
	bus.Publish(context.Background(), Event{Type: EventArtifactUpdated})
	bus.Publish(context.Background(), Event{Type: EventArtifactUpdated})

	all, err := bus.History(EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	updated, err := bus.History(EventFilter{Types: []string{"artifact.*"}})
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	limited, err := bus.History(EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, EventArtifactUpdated, limited[0].Type)
}

func TestBus_HistoryBounded(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{HistoryMaxEvents: 5, HistoryMaxAge: time.Hour})
	defer bus.Close()

	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), Event{Type: EventCommandEnqueued})
	}

	all, err := bus.History(EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestBus_Closed(t *testing.T) {
	bus := newTestBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close()) // idempotent

	assert.ErrorIs(t, bus.Publish(context.Background(), Event{Type: "x"}), ErrBusClosed)
	_, err := bus.Subscribe("*", func(ctx context.Context, e Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBus_HandlerPanicRecovered(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: EventRendererCrashed})
	})
}
