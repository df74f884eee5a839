// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Reasons a session leaves the store, as reported to SessionMetrics.
const (
	RemovalLogout  = "logout"
	RemovalExpired = "expired"
	RemovalSwept   = "swept"
	RemovalRevoked = "revoked"
)

// maxTokenAttempts bounds regeneration on a token hash collision.
const maxTokenAttempts = 3

// SessionMetrics receives session lifecycle events.
type SessionMetrics interface {
	SessionCreated()
	SessionsRemoved(reason string, n int)
	SetActiveSessions(n int)
}

type noopSessionMetrics struct{}

func (noopSessionMetrics) SessionCreated()             {}
func (noopSessionMetrics) SessionsRemoved(string, int) {}
func (noopSessionMetrics) SetActiveSessions(int)       {}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithTTL sets the lifetime of new sessions. Non-positive values are ignored.
func WithTTL(ttl time.Duration) SessionStoreOption {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now. Used by tests to step time deterministically.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenSource replaces crypto/rand as the source of token bytes.
func WithTokenSource(r io.Reader) SessionStoreOption {
	return func(s *SessionStore) {
		s.random = r
	}
}

// WithSessionMetrics reports lifecycle events to m.
func WithSessionMetrics(m SessionMetrics) SessionStoreOption {
	return func(s *SessionStore) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSessionLogger sets the logger used by the background sweeper.
func WithSessionLogger(logger *slog.Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SessionStore is an in-memory, process-local session table keyed by token
// hash. All state is lost on restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	ttl     time.Duration
	now     func() time.Time
	random  io.Reader
	metrics SessionMetrics
	logger  *slog.Logger
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore(opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		metrics:  noopSessionMetrics{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime assigned to new sessions.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create issues a new token for identity. Existing sessions of the same
// identity are left untouched.
func (s *SessionStore) Create(identity string) (string, *Session, error) {
	if identity == "" {
		return "", nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", nil, oops.Code("SESSION_STORE_CLOSED").Errorf("session store is closed")
	}

	for range maxTokenAttempts {
		token, hash, err := GenerateSessionToken(s.random)
		if err != nil {
			return "", nil, err
		}
		if _, taken := s.sessions[hash]; taken {
			continue
		}

		session, err := NewSession(hash, token[:tokenPrefixLen], identity, s.now(), s.ttl)
		if err != nil {
			return "", nil, err
		}
		s.sessions[hash] = session
		s.metrics.SessionCreated()
		s.metrics.SetActiveSessions(len(s.sessions))
		return token, session, nil
	}

	return "", nil, oops.Code("SESSION_TOKEN_COLLISION").
		With("attempts", maxTokenAttempts).
		Errorf("could not generate a unique session token")
}

// Resolve returns the identity bound to token. Expired entries are removed on
// the way out, so once Resolve reports a token expired it never resolves again.
func (s *SessionStore) Resolve(token string) (string, error) {
	session, err := s.Lookup(token)
	if err != nil {
		return "", err
	}
	return session.Identity, nil
}

// Lookup is Resolve returning the whole session.
func (s *SessionStore) Lookup(token string) (*Session, error) {
	hash := HashSessionToken(token)
	now := s.now()

	s.mu.RLock()
	session, ok := s.sessions[hash]
	s.mu.RUnlock()

	if !ok {
		return nil, oops.Code("SESSION_INVALID").
			With("reason", ReasonSessionNotFound).
			With("token", RedactToken(token)).
			Wrap(ErrSessionNotFound)
	}

	if session.IsExpiredAt(now) {
		s.mu.Lock()
		// A concurrent Invalidate or Sweep may have removed it already.
		if current, still := s.sessions[hash]; still && current == session {
			delete(s.sessions, hash)
			s.metrics.SessionsRemoved(RemovalExpired, 1)
			s.metrics.SetActiveSessions(len(s.sessions))
		}
		s.mu.Unlock()

		return nil, oops.Code("SESSION_EXPIRED").
			With("reason", ReasonSessionExpired).
			With("token", RedactToken(token)).
			With("expired_at", session.ExpiresAt).
			Wrap(ErrSessionExpired)
	}

	return session, nil
}

// Invalidate removes token. It reports whether the token was present and is
// safe to call any number of times.
func (s *SessionStore) Invalidate(token string) bool {
	hash := HashSessionToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[hash]; !ok {
		return false
	}
	delete(s.sessions, hash)
	s.metrics.SessionsRemoved(RemovalLogout, 1)
	s.metrics.SetActiveSessions(len(s.sessions))
	return true
}

// InvalidateIdentity removes every session held by identity and returns how
// many were removed.
func (s *SessionStore) InvalidateIdentity(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, session := range s.sessions {
		if session.Identity == identity {
			delete(s.sessions, hash)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.SessionsRemoved(RemovalRevoked, removed)
		s.metrics.SetActiveSessions(len(s.sessions))
	}
	return removed
}

// Sweep removes every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, hash)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.SessionsRemoved(RemovalSwept, removed)
		s.metrics.SetActiveSessions(len(s.sessions))
	}
	return removed
}

// ListActive returns redacted views of all live sessions, oldest first.
func (s *SessionStore) ListActive() []SessionInfo {
	now := s.now()

	s.mu.RLock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		if !session.IsExpiredAt(now) {
			infos = append(infos, session.Info())
		}
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].IssuedAt.Equal(infos[j].IssuedAt) {
			return infos[i].Token < infos[j].Token
		}
		return infos[i].IssuedAt.Before(infos[j].IssuedAt)
	})
	return infos
}

// Len returns the number of stored sessions, including expired ones not yet evicted.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("swept expired sessions", "removed", n, "remaining", s.Len())
			} else {
				s.logger.Debug("session sweep found nothing to remove")
			}
		}
	}
}

// Close drops every session. Create fails afterwards; reads behave as on an
// empty store.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.sessions = make(map[string]*Session)
	s.metrics.SetActiveSessions(0)
}
