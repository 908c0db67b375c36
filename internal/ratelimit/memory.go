package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps windows in a process-local map guarded by one mutex.
// Counters are lost on restart and are not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*Window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*Window)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, period time.Duration, now time.Time) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	w, ok := s.windows[key]
	if !ok || now.After(w.Reset) {
		w = &Window{Reset: now.Add(period)}
		s.windows[key] = w
	}
	w.Count++
	return *w, nil
}

// Len returns the number of live windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// sweep drops expired windows.  Caller holds s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	for k, w := range s.windows {
		if now.After(w.Reset) {
			delete(s.windows, k)
		}
	}
}
