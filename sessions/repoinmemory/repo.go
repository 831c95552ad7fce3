package repoinmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-oauth-relay/sessions"
)

var _ sessions.Repo = (*Repo)(nil)

// Repo is an in-memory session repo for single-process deployments and tests
type Repo struct {
	mu       sync.RWMutex
	sessions map[string]sessions.Record // handle -> record
}

// New creates a new in-memory session repository
func New() *Repo {
	return &Repo{
		sessions: make(map[string]sessions.Record),
	}
}

// Get retrieves a session by handle
func (r *Repo) Get(_ context.Context, handle string) (sessions.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sessions[handle]
	return rec, ok, nil
}

// Put creates or replaces a session
func (r *Repo) Put(_ context.Context, handle string, rec sessions.Record) error {
	rec.Handle = handle
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("[repoinmemory Put]: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[handle] = rec
	return nil
}

// Len returns the number of stored sessions
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
