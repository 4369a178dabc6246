package session

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Info describes a live session.
type Info struct {
	ID          string
	Addr        string
	Source      string
	ConnectedAt time.Time
	LastSeen    time.Time
	Requests    int64
}

// Registry tracks the sessions currently being served.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) register(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	total := len(r.sessions)
	r.mu.Unlock()

	slog.Info("session opened", "session", s.id, "remote", s.conn.RemoteAddr().String(), "total", total)
}

func (r *Registry) unregister(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.id)
	total := len(r.sessions)
	r.mu.Unlock()

	slog.Info("session closed", "session", s.id, "requests", s.requests.Load(), "total", total)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of all live sessions, oldest first.
func (r *Registry) Sessions() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Info())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Info) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return out
}
