// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/config"
)

// Response messages.
const (
	MsgLoginSuccessful = "Login successful"
	MsgLoggedOut       = "Successfully logged out"
	MsgServiceBanner   = "Football Management System API"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string     `json:"message"`
	User      *auth.User `json:"user"`
	SessionID string     `json:"session_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeError(w, r, oops.Code("HTTP_INVALID_BODY").Errorf("email and password are required"))
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.cfg.TokenLocation == config.TokenInCookie {
		s.setSessionCookie(w, result)
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   MsgLoginSuccessful,
		User:      result.User,
		SessionID: result.Token,
	})
}

// handleLogout always succeeds, with or without a live session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), s.Token(r))
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: MsgLoggedOut})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseUserFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	users, err := s.users.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch auth.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	actor, _ := UserFromContext(r.Context())
	user, err := s.users.Update(r.Context(), actor, id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	actor, _ := UserFromContext(r.Context())
	if err := s.users.Delete(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := auth.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	actor, _ := UserFromContext(r.Context())
	user, err := s.users.SetStatus(r.Context(), actor, id, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	actor, _ := UserFromContext(r.Context())
	user, err := s.users.Register(r.Context(), actor, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleSessions lists live sessions after sweeping expired ones. The
// optional identity query parameter is a glob over session emails.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	report, err := s.auth.ListActiveSessions(r.URL.Query().Get("identity"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type rootResponse struct {
	Message       string `json:"message"`
	Version       string `json:"version"`
	Authenticated bool   `json:"authenticated"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	_, authenticated := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, rootResponse{
		Message:       MsgServiceBanner,
		Version:       s.cfg.Version,
		Authenticated: authenticated,
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Database: databaseHost(s.cfg.DatabaseURL)}
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check: database unreachable", "error", err)
			resp.Status = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// databaseHost returns what follows the last '@' of a connection URL, so
// credentials are never shown.
func databaseHost(databaseURL string) string {
	i := strings.LastIndex(databaseURL, "@")
	if i < 0 {
		return "not configured"
	}
	return databaseURL[i+1:]
}

func (s *Server) setSessionCookie(w http.ResponseWriter, result *auth.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// userID parses the {id} route parameter. An unparseable ID names no user.
func userID(r *http.Request) (ulid.ULID, error) {
	raw := chi.URLParam(r, "id")
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_NOT_FOUND").With("user_id", raw).Wrap(auth.ErrNotFound)
	}
	return id, nil
}

func parseUserFilter(q url.Values) (auth.UserFilter, error) {
	filter := auth.UserFilter{Limit: auth.DefaultUserListLimit, Search: q.Get("search")}

	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return filter, oops.Code("HTTP_INVALID_QUERY").
				With("param", "skip").
				Errorf("skip must be a non-negative integer")
		}
		filter.Offset = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > auth.MaxUserListLimit {
			return filter, oops.Code("HTTP_INVALID_QUERY").
				With("param", "limit").
				Errorf("limit must be between 1 and %d", auth.MaxUserListLimit)
		}
		filter.Limit = limit
	}
	return filter, nil
}
