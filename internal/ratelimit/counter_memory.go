package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryCounterStore returns a CounterStore held in process memory.
// Sweep must be called periodically to drop elapsed windows.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &memoryEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt, nil
}

// Sweep discards entries whose window has elapsed, bounding memory.
func (s *MemoryCounterStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
