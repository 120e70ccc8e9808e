package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Abraxas-365/siteqa/kb"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionFactory builds a new session. The session chooses its own id.
type SessionFactory func(ctx context.Context) (*kb.Session, error)

// Registry holds the live sessions of a server.
type Registry struct {
	factory SessionFactory

	mu       sync.RWMutex
	sessions map[string]*kb.Session
}

func NewRegistry(factory SessionFactory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*kb.Session),
	}
}

func (r *Registry) Create(ctx context.Context) (*kb.Session, error) {
	s, err := r.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return nil, fmt.Errorf("create session: duplicate id %s", s.ID())
	}
	r.sessions[s.ID()] = s
	return s, nil
}

func (r *Registry) Get(id string) (*kb.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove closes the session and forgets it.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return s.Close(ctx)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session, returning the joined errors.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*kb.Session)
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
