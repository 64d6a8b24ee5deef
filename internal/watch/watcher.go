package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/logview/internal/logtail"
	"github.com/five82/logview/internal/state"
)

const (
	defaultPollInterval = 300 * time.Millisecond
	subscriberBuffer    = 100
)

// Watcher polls a log file and fans new lines out to subscribers.
type Watcher struct {
	interval time.Duration
	store    *state.Store
	logger   *zap.Logger

	mu     sync.Mutex
	path   string
	offset int64

	subsMu sync.Mutex
	subs   map[uuid.UUID]chan string
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithStore sets the status store updated after every poll.
func WithStore(store *state.Store) Option {
	return func(w *Watcher) {
		if store != nil {
			w.store = store
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher for path. Content already in the file is served by
// /content, so watching starts at the current end of the file.
func New(path string, opts ...Option) *Watcher {
	w := &Watcher{
		interval: defaultPollInterval,
		store:    &state.Store{},
		logger:   zap.NewNop(),
		path:     path,
		subs:     make(map[uuid.UUID]chan string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if info, err := os.Stat(path); err == nil {
		w.offset = info.Size()
	}
	w.store.Update(w.path, w.offset, 0, nil)
	return w
}

// File returns the path currently being watched. It changes when the
// original file disappears and a newer one is picked up.
func (w *Watcher) File() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Store returns the status store.
func (w *Watcher) Store() *state.Store {
	return w.store
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.closeAll()
			return
		case <-ticker.C:
			_, _ = w.Poll()
		}
	}
}

// Poll reads any complete lines appended since the last poll and publishes
// the non-blank ones. It returns how many lines were published.
func (w *Watcher) Poll() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	chunk, err := logtail.ReadFrom(w.path, w.offset)
	if err != nil && errors.Is(err, os.ErrNotExist) && w.switchToNewest() {
		chunk, err = logtail.ReadFrom(w.path, w.offset)
	}
	if err != nil {
		w.logger.Warn("log poll failed", zap.String("file", w.path), zap.Error(err))
		w.store.Update(w.path, w.offset, 0, err)
		return 0, err
	}
	if chunk.Truncated {
		w.logger.Info("log file truncated, reading from start", zap.String("file", w.path))
	}
	w.offset = chunk.Offset

	lines := make([]string, 0, len(chunk.Lines))
	for _, line := range chunk.Lines {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	w.publish(lines)
	w.store.Update(w.path, w.offset, len(lines), nil)
	return len(lines), nil
}

// switchToNewest moves to the newest log in the watched file's directory.
// Caller holds w.mu.
func (w *Watcher) switchToNewest() bool {
	dir := filepath.Dir(w.path)
	newest, err := logtail.Newest(dir)
	if err != nil {
		w.logger.Debug("no replacement log file", zap.String("dir", dir), zap.Error(err))
		return false
	}
	if newest == w.path {
		return false
	}
	w.logger.Info("switching to new log file", zap.String("from", w.path), zap.String("to", newest))
	w.path = newest
	w.offset = 0
	return true
}

// Subscribe registers a subscriber. The returned channel is closed when the
// subscriber is cancelled or dropped for falling behind.
func (w *Watcher) Subscribe() (uuid.UUID, <-chan string, func()) {
	id := uuid.New()
	ch := make(chan string, subscriberBuffer)

	w.subsMu.Lock()
	w.subs[id] = ch
	n := len(w.subs)
	w.subsMu.Unlock()
	w.store.SetSubscribers(n)
	w.logger.Debug("subscriber added", zap.String("subscriber", id.String()), zap.Int("subscribers", n))

	cancel := func() { w.remove(id, "cancelled") }
	return id, ch, cancel
}

// Subscribers returns the number of connected subscribers.
func (w *Watcher) Subscribers() int {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	return len(w.subs)
}

func (w *Watcher) publish(lines []string) {
	if len(lines) == 0 {
		return
	}
	w.subsMu.Lock()
	var dropped []uuid.UUID
	for id, ch := range w.subs {
		for _, line := range lines {
			select {
			case ch <- line:
				continue
			default:
			}
			dropped = append(dropped, id)
			delete(w.subs, id)
			close(ch)
			break
		}
	}
	n := len(w.subs)
	w.subsMu.Unlock()

	if len(dropped) > 0 {
		w.store.SetSubscribers(n)
		for _, id := range dropped {
			w.logger.Warn("dropping slow subscriber", zap.String("subscriber", id.String()))
		}
	}
}

func (w *Watcher) remove(id uuid.UUID, reason string) {
	w.subsMu.Lock()
	ch, ok := w.subs[id]
	if ok {
		delete(w.subs, id)
		close(ch)
	}
	n := len(w.subs)
	w.subsMu.Unlock()

	if ok {
		w.store.SetSubscribers(n)
		w.logger.Debug("subscriber removed",
			zap.String("subscriber", id.String()),
			zap.String("reason", reason),
			zap.Int("subscribers", n),
		)
	}
}

func (w *Watcher) closeAll() {
	w.subsMu.Lock()
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
	w.subsMu.Unlock()
	w.store.SetSubscribers(0)
}
