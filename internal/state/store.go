package state

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot represents the latest watcher status.
type Snapshot struct {
	File                string
	Offset              int64
	Subscribers         int
	LinesPublished      uint64
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed polls
}

// IsFailing returns true when the watched file has been unreadable for
// multiple polls.
func (s Snapshot) IsFailing() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records the outcome of one poll. When err is non-nil the previous
// position is kept but the error is recorded for visibility.
func (s *Store) Update(file string, offset int64, published int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.File = file
	s.snapshot.Offset = offset
	if published > 0 {
		s.snapshot.LinesPublished += uint64(published)
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// SetSubscribers records the number of connected stream subscribers.
func (s *Store) SetSubscribers(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Subscribers = n
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
