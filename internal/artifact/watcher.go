// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/wingedpig/framegate/internal/events"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher publishes artifact.updated events when the renderer writes
// output. Writes arrive in bursts (the renderer rewrites the live file
// every frame), so notifications are debounced before the directory is
// rescanned.
type Watcher struct {
	store    *Store
	bus      events.EventBus
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stopped bool
}

// NewWatcher creates a watcher over the store's directory.
func NewWatcher(store *Store, bus events.EventBus, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{store: store, bus: bus, debounce: debounce}
}

// Start begins watching. Subdirectories created later (the renderer
// sometimes nests output under step directories) are added as they
// appear.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	if err := fsw.Add(w.store.Dir()); err != nil {
		fsw.Close()
		return err
	}

	go w.loop(fsw)
	return nil
}

// Stop shuts the watcher down. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.fsw != nil {
		w.fsw.Close()
	}
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// Watch new subdirectories as they appear.
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					fsw.Add(event.Name)
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("artifact watcher error: %v", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	info, err := w.store.Latest()
	if err != nil {
		return // Purged or not yet produced; nothing to announce
	}
	w.bus.Publish(context.Background(), events.Event{
		Type: events.EventArtifactUpdated,
		Payload: map[string]interface{}{
			"name":  info.Name,
			"size":  info.Size,
			"mtime": info.ModTime,
		},
	})
}
