// Package selection holds the process-wide list of paths the user has marked
// for sharing. The list is written by the selection producer (tray, CLI) and
// read-and-consumed by the copy handler.
package selection

import (
	"log/slog"
	"slices"
	"sync"
)

// Store is a lock-guarded ordered list of paths plus a one-shot "consumed"
// signal. Readers take a Snapshot and release the lock before doing any I/O.
type Store struct {
	mu       sync.RWMutex
	paths    []string
	closed   bool
	consumed chan struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{consumed: make(chan struct{}, 1)}
}

// Set replaces the selection. Duplicate paths are kept once, first position wins.
func (s *Store) Set(paths []string) {
	s.mu.Lock()
	s.paths = dedupe(nil, paths)
	n := len(s.paths)
	s.mu.Unlock()

	slog.Debug("selection replaced", "count", n)
}

// Add appends paths that are not already selected.
func (s *Store) Add(paths ...string) {
	s.mu.Lock()
	s.paths = dedupe(s.paths, paths)
	n := len(s.paths)
	s.mu.Unlock()

	slog.Debug("selection extended", "count", n)
}

// Clear empties the selection.
func (s *Store) Clear() {
	s.mu.Lock()
	s.paths = nil
	s.mu.Unlock()
}

// Snapshot returns a copy of the current selection.
func (s *Store) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.paths)
}

// Len returns the number of selected paths.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// NotifyConsumed tells the selection owner that the current selection has
// been sent to a peer. It never blocks: pending signals coalesce, and after
// Close the signal is logged and dropped.
func (s *Store) NotifyConsumed() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		slog.Warn("selection consumed signal dropped: store closed")
		return
	}
	select {
	case s.consumed <- struct{}{}:
	default:
	}
}

// Consumed returns the channel that receives consumed signals. It is closed
// by Close.
func (s *Store) Consumed() <-chan struct{} { return s.consumed }

// Close closes the Consumed channel. Further NotifyConsumed calls are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.consumed)
}

// ResetOnConsume clears the selection every time it is consumed, until the
// store is closed. This is what a selection UI does; call in a goroutine.
func (s *Store) ResetOnConsume() {
	for range s.consumed {
		n := s.Len()
		s.Clear()
		slog.Info("selection consumed, cleared", "count", n)
	}
}

func dedupe(dst, add []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(add))
	for _, p := range dst {
		seen[p] = struct{}{}
	}
	for _, p := range add {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		dst = append(dst, p)
	}
	return dst
}
