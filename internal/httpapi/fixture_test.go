// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/httpapi"
)

const testPassword = "offside-trap-42"

var testPasswordHash = sync.OnceValue(func() string {
	h, err := auth.NewArgon2idHasher().Hash(testPassword)
	if err != nil {
		panic(err)
	}
	return h
})

// memRepo is an in-memory auth.UserRepository.
type memRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]auth.User
	err   error // returned by every call when set
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[ulid.ULID]auth.User{}}
}

func (m *memRepo) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memRepo) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrDuplicateEmail)
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
}

func (m *memRepo) Update(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[user.ID]; !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memRepo) Delete(_ context.Context, id ulid.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[id]; !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *memRepo) List(_ context.Context, filter auth.UserFilter) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*auth.User
	for _, u := range m.users {
		search := strings.ToLower(filter.Search)
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(u.Email, search) {
			continue
		}
		out = append(out, &u)
	}
	slices.SortFunc(out, func(a, b *auth.User) int { return a.ID.Compare(b.ID) })
	if filter.Offset >= len(out) {
		return []*auth.User{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type observedRequest struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []observedRequest
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, observedRequest{method, route, status})
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type apiFixture struct {
	repo     *memRepo
	store    *auth.SessionStore
	auth     *auth.Service
	handler  http.Handler
	logs     *bytes.Buffer
	observer *recordingObserver
}

func newAPIFixture(t *testing.T, cfg httpapi.Config, opts ...httpapi.Option) *apiFixture {
	t.Helper()
	f := &apiFixture{
		repo:     newMemRepo(),
		store:    auth.NewSessionStore(),
		logs:     &bytes.Buffer{},
		observer: &recordingObserver{},
	}
	t.Cleanup(f.store.Close)

	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hasher := auth.NewArgon2idHasher()

	authService, err := auth.NewAuthServiceWithLogger(f.repo, f.store, hasher, logger)
	require.NoError(t, err)
	f.auth = authService
	users, err := auth.NewUserService(f.repo, authService, hasher, logger)
	require.NoError(t, err)

	opts = append([]httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithRequestObserver(f.observer),
	}, opts...)
	srv, err := httpapi.New(authService, users, cfg, opts...)
	require.NoError(t, err)
	f.handler = srv.Handler()
	return f
}

func (f *apiFixture) addUser(t *testing.T, email string, role auth.Role, status auth.Status) *auth.User {
	t.Helper()
	name, _, _ := strings.Cut(email, "@")
	u, err := auth.NewUser(name, email, role, status, testPasswordHash())
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), u))
	return u
}

// session issues a session for user without going through login.
func (f *apiFixture) session(t *testing.T, user *auth.User) string {
	t.Helper()
	token, _, err := f.store.Create(user.Email)
	require.NoError(t, err)
	return token
}

// do sends a request, presenting token in the Authorization header when set.
func (f *apiFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Session "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
