// Package store keeps the bounded per-caller conversation window.
package store

import "context"

// Store is the conversation memory keyed by caller address.
//
// Append adds turns to the end of the address's history and truncates it to
// the last WindowSize entries in one atomic step. Recent returns the final n
// turns oldest first; an unknown address yields an empty slice. There is no
// delete: entries leave only through truncation or a restart of the backend.
type Store interface {
	Append(ctx context.Context, addr string, turns ...Turn) error
	Recent(ctx context.Context, addr string, n int) ([]Turn, error)
	WindowSize() int
	Close() error
}

// DefaultWindow is used when a backend is built with a non-positive window.
const DefaultWindow = 30

func normalizeWindow(w int) int {
	if w <= 0 {
		return DefaultWindow
	}
	return w
}

// tail returns a copy of the last n entries of turns.
func tail(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) == 0 {
		return []Turn{}
	}
	if n > len(turns) {
		n = len(turns)
	}
	out := make([]Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}
