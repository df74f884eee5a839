// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 43 base64url chars, 256 bits
	DefaultSessionTTL = 24 * time.Hour // default lifetime of a session

	// tokenPrefixLen is how much of a token survives redaction.
	tokenPrefixLen = 8
)

// Session binds an opaque token to an identity for a fixed window.
// Sessions are immutable once created; whether one is expired is derived at
// read time from ExpiresAt.
type Session struct {
	TokenHash   string
	TokenPrefix string
	Identity    string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// NewSession creates a validated Session issued at now with the given ttl.
func NewSession(tokenHash, tokenPrefix, identity string, now time.Time, ttl time.Duration) (*Session, error) {
	if identity == "" {
		return nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").With("ttl", ttl.String()).Errorf("ttl must be positive")
	}
	return &Session{
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Identity:    identity,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// IsExpiredAt reports whether the session is expired at t.
// A session is still live at exactly ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Info returns the redacted view of the session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		Token:     s.TokenPrefix + "...",
		Identity:  s.Identity,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// SessionInfo is a session as shown to administrators. Token holds only a
// redacted prefix.
type SessionInfo struct {
	Token     string    `json:"session_id"`
	Identity  string    `json:"user_email"`
	IssuedAt  time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateSessionToken reads SessionTokenBytes from r and returns the
// URL-safe plaintext token and its SHA-256 hash.
// The plaintext token goes to the client; only the hash is kept server-side.
func GenerateSessionToken(r io.Reader) (token, hash string, err error) {
	if r == nil {
		r = rand.Reader
	}
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = io.ReadFull(r, tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "read random bytes").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = base64.RawURLEncoding.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the hex SHA-256 of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RedactToken returns the first characters of token followed by "...".
func RedactToken(token string) string {
	if len(token) > tokenPrefixLen {
		token = token[:tokenPrefixLen]
	}
	return token + "..."
}
