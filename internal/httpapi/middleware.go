// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/config"
)

// sessionScheme is the Authorization scheme API clients use to present a
// session token: "Authorization: Session <token>".
const sessionScheme = "Session"

type userContextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user stored by Authenticate or OptionalAuth.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*auth.User)
	return user, ok && user != nil
}

// Token extracts the session token from r. In cookie mode the cookie is read
// first and the Authorization header is the fallback; in header mode only the
// header counts. Returns "" when no token is presented.
func (s *Server) Token(r *http.Request) string {
	if s.cfg.TokenLocation != config.TokenInHeader {
		if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return headerToken(r.Header.Get("Authorization"))
}

func headerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, sessionScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate rejects requests without a session that resolves to an
// active user, and stores the user in the request context.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.AuthenticateRequest(r.Context(), s.Token(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth stores the user in the request context when the request
// carries a valid session and passes anonymous requests through unchanged.
func (s *Server) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.OptionalUser(r.Context(), s.Token(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows users holding role, and admins. It must run after
// Authenticate.
func (s *Server) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return s.requireRule(next, func(user *auth.User) error {
			return auth.CheckRole(user, role)
		})
	}
}

// RequireAdmin allows only admins. It must run after Authenticate.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return s.requireRule(next, auth.CheckAdmin)
}

func (s *Server) requireRule(next http.Handler, rule func(*auth.User) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			// Mounted without Authenticate: authenticate here.
			var err error
			user, err = s.auth.AuthenticateRequest(r.Context(), s.Token(r))
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			r = r.WithContext(WithUser(r.Context(), user))
		}
		if _, err := s.auth.Decide(r.Context(), user, rule(user)); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
