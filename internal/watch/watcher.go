// Package watch triggers a callback when catalog files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"querygen/internal/logging"
)

// Handler receives the files that changed during one debounce window.
type Handler func(ctx context.Context, changed []string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Triggers      int
	Errors        int
	LastEventPath string
	LastEventType string
	LastTrigger   time.Time
}

// Watcher watches a fixed set of files. fsnotify watches their parent
// directories so editors that save by rename are still seen.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	handler  Handler
	pending  map[string]bool
	lastSeen time.Time
	stats    Stats
}

// New creates a Watcher over paths. Bursts of events closer together than
// debounce produce one handler call.
func New(paths []string, debounce time.Duration, handler Handler) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
		handler:  handler,
		pending:  make(map[string]bool),
	}

	seenDir := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Run watches until ctx is done. The handler runs on the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Watch("watching directory: %s", dir)
	}

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.WatchWarn("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name, err := filepath.Abs(event.Name)
	if err != nil || !w.files[name] {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.WatchDebug("%s event for %s", eventType, name)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[name] = true
	w.lastSeen = time.Now()
	w.stats.Events++
	w.stats.LastEventPath = name
	w.stats.LastEventType = eventType
}

// flush calls the handler once the pending set has been quiet for a full
// debounce interval.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.stats.Triggers++
	w.stats.LastTrigger = time.Now()
	w.mu.Unlock()

	sort.Strings(changed)
	logging.Watch("%d file(s) changed, triggering", len(changed))
	if w.handler != nil {
		w.handler(ctx, changed)
	}
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
