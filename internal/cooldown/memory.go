package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps admissions in process memory. State is lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	window    time.Duration
	retention time.Duration
	entries   map[Key]time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a store. Entries older than retention are evicted
// lazily while recording admissions; a non-positive retention disables that.
func NewMemoryStore(window, retention time.Duration) *MemoryStore {
	return &MemoryStore{
		window:    window,
		retention: clampRetention(window, retention),
		entries:   make(map[Key]time.Time),
	}
}

func (s *MemoryStore) IsAdmitted(_ context.Context, key Key, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.entries[key]
	if !ok {
		return true, nil
	}
	return expired(last, stamp(now), s.window), nil
}

func (s *MemoryStore) RecordAdmission(_ context.Context, key Key, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = stamp(now)
	s.entries[key] = now

	// Sweep at most once per window.
	if s.retention > 0 && now.Sub(s.lastSweep) > s.window {
		s.pruneLocked(now.Add(-s.retention))
		s.lastSweep = now
	}
	return nil
}

func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(cutoff), nil
}

func (s *MemoryStore) pruneLocked(cutoff time.Time) int {
	n := 0
	for k, last := range s.entries {
		if last.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
