// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Login outcomes reported to AuthMetrics.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
	LoginError              = "error"
)

// Authorization outcomes reported to AuthMetrics.
const (
	DecisionAuthorized      = "authorized"
	DecisionUnauthenticated = "unauthenticated"
	DecisionForbidden       = "forbidden"
)

// AuthMetrics receives login and authorization outcomes.
type AuthMetrics interface {
	LoginAttempt(result string)
	AuthDecision(outcome string)
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) LoginAttempt(string) {}
func (noopAuthMetrics) AuthDecision(string) {}

// Service provides authentication and authorization operations.
type Service struct {
	users    UserRepository
	sessions *SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
	metrics  AuthMetrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuthMetrics reports outcomes to m.
func WithAuthMetrics(m AuthMetrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewAuthService creates a new Service that logs to slog.Default.
func NewAuthService(users UserRepository, sessions *SessionStore, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	return NewAuthServiceWithLogger(users, sessions, hasher, slog.Default(), opts...)
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(
	users UserRepository,
	sessions *SessionStore,
	hasher PasswordHasher,
	logger *slog.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}

	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
		metrics:  noopAuthMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sessions returns the backing session store.
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// dummyPasswordHash is verified when the user doesn't exist so that unknown
// and known emails take the same time to reject.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticate checks an email and password pair. An unknown email and a wrong
// password fail identically with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)

	if lookupErr != nil {
		return nil, invalidCredentials(ReasonUnknownIdentity)
	}
	if verifyErr != nil {
		s.logger.WarnContext(ctx, "stored password hash is unreadable",
			"user_id", user.ID.String(),
			"error", verifyErr)
		return nil, invalidCredentials(ReasonBadPassword)
	}
	if !valid {
		return nil, invalidCredentials(ReasonBadPassword)
	}

	s.upgradeHash(ctx, user, password)
	return user, nil
}

// upgradeHash re-hashes legacy digests after a successful verification.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	upgraded := *user
	upgraded.PasswordHash = newHash
	upgraded.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, &upgraded); err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	user.PasswordHash = newHash
}

// LoginResult is a successful login.
type LoginResult struct {
	Token     string
	User      *User
	ExpiresAt time.Time
}

// Login authenticates the user and issues a session token. Only active
// accounts may log in.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.LoginAttempt(LoginInvalidCredentials)
			s.logger.InfoContext(ctx, "login rejected", "email", email, "reason", Reason(err))
		} else {
			s.metrics.LoginAttempt(LoginError)
		}
		return nil, err
	}

	if !user.IsActive() {
		s.metrics.LoginAttempt(LoginInactive)
		s.logger.InfoContext(ctx, "login rejected",
			"email", user.Email,
			"reason", ReasonAccountInactive,
			"status", string(user.Status))
		return nil, unauthenticated(ReasonAccountInactive, MsgAccountInactive)
	}

	token, session, err := s.sessions.Create(user.Email)
	if err != nil {
		s.metrics.LoginAttempt(LoginError)
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	s.metrics.LoginAttempt(LoginSuccess)
	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", user.ID.String(),
		"email", user.Email,
		"session", session.TokenPrefix)

	return &LoginResult{Token: token, User: user, ExpiresAt: session.ExpiresAt}, nil
}

// Logout ends the session behind token. It is idempotent: empty, unknown and
// already-ended tokens are all accepted. Reports whether a session was ended.
func (s *Service) Logout(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ended := s.sessions.Invalidate(token)
	s.logger.DebugContext(ctx, "logout", "session", RedactToken(token), "ended", ended)
	return ended
}

// AuthenticateRequest resolves token to an active user.
func (s *Service) AuthenticateRequest(ctx context.Context, token string) (*User, error) {
	user, err := s.resolveUser(ctx, token)
	if err != nil && errors.Is(err, ErrUnauthenticated) {
		s.metrics.AuthDecision(DecisionUnauthenticated)
		s.logger.DebugContext(ctx, "request not authenticated", "reason", Reason(err))
	}
	return user, err
}

// OptionalUser is AuthenticateRequest for endpoints that also serve anonymous
// callers: authentication failures yield (nil, nil). Infrastructure errors are
// still returned.
func (s *Service) OptionalUser(ctx context.Context, token string) (*User, error) {
	user, err := s.resolveUser(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) resolveUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, unauthenticated(ReasonNoSession, MsgNoSession)
	}

	identity, err := s.sessions.Resolve(token)
	if err != nil {
		return nil, oops.Code("AUTH_UNAUTHENTICATED").
			Public(MsgInvalidSession).
			Wrap(err)
	}

	user, err := s.users.GetByEmail(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthenticated(ReasonUserMissing, MsgUserMissing)
		}
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if !user.IsActive() {
		return nil, oops.Code("AUTH_UNAUTHENTICATED").
			With("reason", ReasonAccountInactive).
			With("user_id", user.ID.String()).
			Public(MsgAccountInactive).
			Wrap(ErrUnauthenticated)
	}

	return user, nil
}

// RequireRole authenticates token and checks that the user holds role.
func (s *Service) RequireRole(ctx context.Context, token string, role Role) (*User, error) {
	user, err := s.AuthenticateRequest(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, user, CheckRole(user, role))
}

// RequireAdmin authenticates token and checks that the user is an admin.
func (s *Service) RequireAdmin(ctx context.Context, token string) (*User, error) {
	user, err := s.AuthenticateRequest(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, user, CheckAdmin(user))
}

// RequireSelfOrAdmin authenticates token and checks that the user is the
// account identified by targetID or is an admin.
func (s *Service) RequireSelfOrAdmin(ctx context.Context, token string, targetID ulid.ULID) (*User, error) {
	user, err := s.AuthenticateRequest(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, user, CheckSelfOrAdmin(user, targetID))
}

// Decide records the outcome of a rule check made outside the Require*
// methods and returns user when check is nil.
func (s *Service) Decide(ctx context.Context, user *User, check error) (*User, error) {
	return s.decide(ctx, user, check)
}

func (s *Service) decide(ctx context.Context, user *User, check error) (*User, error) {
	if check != nil {
		s.metrics.AuthDecision(DecisionForbidden)
		s.logger.InfoContext(ctx, "request forbidden",
			"user_id", user.ID.String(),
			"role", string(user.Role),
			"error", check)
		return nil, check
	}
	s.metrics.AuthDecision(DecisionAuthorized)
	return user, nil
}

// SessionReport is the administrator's view of the session table.
type SessionReport struct {
	Sessions       []SessionInfo `json:"active_sessions"`
	TotalActive    int           `json:"total_active"`
	ExpiredCleaned int           `json:"expired_cleaned"`
}

// ListActiveSessions sweeps expired sessions and lists the rest. A non-empty
// identityPattern is a glob matched against each session's identity, for
// example "*@club.example".
func (s *Service) ListActiveSessions(identityPattern string) (*SessionReport, error) {
	var matcher glob.Glob
	if identityPattern != "" {
		g, err := glob.Compile(identityPattern)
		if err != nil {
			return nil, oops.Code("SESSION_FILTER_INVALID").
				With("pattern", identityPattern).
				Wrap(err)
		}
		matcher = g
	}

	cleaned := s.sessions.Sweep()
	all := s.sessions.ListActive()

	sessions := all
	if matcher != nil {
		sessions = make([]SessionInfo, 0, len(all))
		for _, info := range all {
			if matcher.Match(info.Identity) {
				sessions = append(sessions, info)
			}
		}
	}

	return &SessionReport{
		Sessions:       sessions,
		TotalActive:    len(sessions),
		ExpiredCleaned: cleaned,
	}, nil
}

// RevokeSessions ends every session held by email.
func (s *Service) RevokeSessions(ctx context.Context, email string) int {
	n := s.sessions.InvalidateIdentity(email)
	if n > 0 {
		s.logger.InfoContext(ctx, "revoked sessions", "email", email, "count", n)
	}
	return n
}
