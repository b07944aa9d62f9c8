package repository

import (
	"context"
	"sync"
)

// MemorySequencer is the in-process counter used when Redis is unavailable.
// Only the current day is kept; a new prefix drops the previous counters.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[string]int64)}
}

func (s *MemorySequencer) Next(_ context.Context, dayPrefix string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.counters[dayPrefix]
	if !ok {
		clear(s.counters)
	}
	if current < floor {
		current = floor
	}
	current++
	s.counters[dayPrefix] = current
	return current, nil
}
