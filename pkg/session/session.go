// SPDX-License-Identifier: Apache-2.0

// Package session holds the process-wide session registry. Session state is
// owned by a Registry and reached only through its methods; there is no
// package-level mutable store.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens/tracelens/pkg/errors"
)

// Session is an authenticated user session.
type Session struct {
	Token     string    `json:"token"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Registry tracks active sessions. Sessions begin explicitly on login, end
// explicitly on logout, and expire after the configured TTL.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry clock. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty session registry. A non-positive ttl means
// sessions never expire.
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin starts a session for user and returns it with a fresh token.
func (r *Registry) Begin(user string) (Session, error) {
	if user == "" {
		return Session{}, errors.InvalidInput("user is required")
	}
	now := r.now().UTC()
	s := Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: now,
	}
	if r.ttl > 0 {
		s.ExpiresAt = now.Add(r.ttl)
	}
	r.mu.Lock()
	r.sessions[s.Token] = s
	r.mu.Unlock()
	return s, nil
}

// Lookup returns the session for token. Expired sessions are treated as
// absent and removed.
func (r *Registry) Lookup(token string) (Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok {
		return Session{}, errors.Unauthorized("unknown session token")
	}
	if r.expired(s) {
		r.mu.Lock()
		delete(r.sessions, token)
		r.mu.Unlock()
		return Session{}, errors.Unauthorized("session expired")
	}
	return s, nil
}

// End terminates the session for token.
func (r *Registry) End(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; !ok {
		return errors.Unauthorized("unknown session token")
	}
	delete(r.sessions, token)
	return nil
}

// Reset removes all sessions.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.sessions = make(map[string]Session)
	r.mu.Unlock()
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for token, s := range r.sessions {
		if r.expired(s) {
			delete(r.sessions, token)
			dropped++
		}
	}
	return dropped
}

// StartSweeper sweeps expired sessions on the given interval until the
// context is cancelled. A non-positive interval disables sweeping.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	log := slog.Default()
	if interval <= 0 {
		log.Info("session.sweeper.disabled", slog.Duration("interval", interval))
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info("session.sweeper.start", slog.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				log.Info("session.sweeper.stop")
				return
			case <-ticker.C:
				if dropped := r.Sweep(); dropped > 0 {
					log.Info("session.sweeper.sweep", slog.Int("expired", dropped))
				}
			}
		}
	}()
}

func (r *Registry) expired(s Session) bool {
	return !s.ExpiresAt.IsZero() && r.now().UTC().After(s.ExpiresAt)
}
