// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with invalid ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// MemoryBusConfig configures the memory event bus.
type MemoryBusConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
}

// MemoryEventBus is an in-memory event bus implementation.
type MemoryEventBus struct {
	mu            sync.RWMutex
	subscriptions map[SubscriptionID]*subscription
	history       []Event
	maxEvents     int
	maxAge        time.Duration
	closed        atomic.Bool
}

type subscription struct {
	id      SubscriptionID
	pattern string
	handler EventHandler
}

// NewMemoryEventBus creates a new in-memory event bus.
func NewMemoryEventBus(cfg MemoryBusConfig) *MemoryEventBus {
	if cfg.HistoryMaxEvents <= 0 {
		cfg.HistoryMaxEvents = 1000
	}
	if cfg.HistoryMaxAge <= 0 {
		cfg.HistoryMaxAge = time.Hour
	}
	return &MemoryEventBus{
		subscriptions: make(map[SubscriptionID]*subscription),
		maxEvents:     cfg.HistoryMaxEvents,
		maxAge:        cfg.HistoryMaxAge,
	}
}

// Publish emits an event to all matching subscribers.
func (bus *MemoryEventBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.Lock()
	bus.history = append(bus.history, event)
	bus.pruneLocked()
	subs := make([]*subscription, 0, len(bus.subscriptions))
	for _, sub := range bus.subscriptions {
		subs = append(subs, sub)
	}
	bus.mu.Unlock()

	for _, sub := range subs {
		if !MatchPattern(event.Type, sub.pattern) {
			continue
		}
		// Handler panics must not take down the publisher.
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Event handler panic for %s: %v", event.Type, r)
				}
			}()
			sub.handler(ctx, event)
		}()
	}

	return nil
}

// Subscribe registers a handler for events matching pattern.
func (bus *MemoryEventBus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	if bus.closed.Load() {
		return "", ErrBusClosed
	}
	if pattern == "" {
		return "", errors.New("empty pattern")
	}

	id := SubscriptionID(uuid.New().String())

	bus.mu.Lock()
	bus.subscriptions[id] = &subscription{id: id, pattern: pattern, handler: handler}
	bus.mu.Unlock()

	return id, nil
}

// Unsubscribe removes a subscription.
func (bus *MemoryEventBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if _, ok := bus.subscriptions[id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(bus.subscriptions, id)
	return nil
}

// History retrieves past events matching filter.
func (bus *MemoryEventBus) History(filter EventFilter) ([]Event, error) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	result := make([]Event, 0)
	for _, event := range bus.history {
		if bus.matchesFilter(event, filter) {
			result = append(result, event)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	// Keep the most recent events when over the limit.
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}

	return result, nil
}

// Close shuts down the event bus gracefully.
func (bus *MemoryEventBus) Close() error {
	if bus.closed.Swap(true) {
		return nil // Already closed
	}

	bus.mu.Lock()
	bus.subscriptions = make(map[SubscriptionID]*subscription)
	bus.history = nil
	bus.mu.Unlock()

	return nil
}

func (bus *MemoryEventBus) matchesFilter(event Event, filter EventFilter) bool {
	if !filter.Since.IsZero() && event.Timestamp.Before(filter.Since) {
		return false
	}
	if len(filter.Types) == 0 {
		return true
	}
	for _, pattern := range filter.Types {
		if MatchPattern(event.Type, pattern) {
			return true
		}
	}
	return false
}

// pruneLocked enforces history bounds. Caller must hold bus.mu.
func (bus *MemoryEventBus) pruneLocked() {
	if len(bus.history) > bus.maxEvents {
		bus.history = bus.history[len(bus.history)-bus.maxEvents:]
	}
	cutoff := time.Now().Add(-bus.maxAge)
	firstKept := 0
	for firstKept < len(bus.history) && bus.history[firstKept].Timestamp.Before(cutoff) {
		firstKept++
	}
	if firstKept > 0 {
		bus.history = bus.history[firstKept:]
	}
}
