package store

import (
	"context"
	"sync"
)

// MemoryStore is the process-local backend. History is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	window  int
	history map[string][]Turn
}

func NewMemoryStore(window int) *MemoryStore {
	return &MemoryStore{
		window:  normalizeWindow(window),
		history: make(map[string][]Turn),
	}
}

func (s *MemoryStore) Append(_ context.Context, addr string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[addr], turns...)
	if len(h) > s.window {
		h = append([]Turn(nil), h[len(h)-s.window:]...)
	}
	s.history[addr] = h
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, addr string, n int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.history[addr], n), nil
}

func (s *MemoryStore) WindowSize() int { return s.window }

func (s *MemoryStore) Close() error { return nil }
