// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RegisterRequest describes a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Status   Status `json:"status,omitempty"`
}

// UserService manages user accounts on behalf of an authenticated actor.
type UserService struct {
	users  UserRepository
	auth   *Service
	hasher PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository, authService *Service, hasher PasswordHasher, logger *slog.Logger) (*UserService, error) {
	if users == nil {
		return nil, oops.Code("USER_SERVICE_INVALID_CONFIG").Errorf("users repository is required")
	}
	if authService == nil {
		return nil, oops.Code("USER_SERVICE_INVALID_CONFIG").Errorf("auth service is required")
	}
	if hasher == nil {
		return nil, oops.Code("USER_SERVICE_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("USER_SERVICE_INVALID_CONFIG").Errorf("logger is required")
	}
	return &UserService{users: users, auth: authService, hasher: hasher, logger: logger}, nil
}

// Register creates an account. Only admins may register users.
func (s *UserService) Register(ctx context.Context, actor *User, req RegisterRequest) (*User, error) {
	if _, err := s.auth.Decide(ctx, actor, CheckAdmin(actor)); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, oops.Code("USER_INVALID_PASSWORD").Errorf("password cannot be empty")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("USER_PASSWORD_HASH_FAILED").Wrap(err)
	}
	user, err := NewUser(req.Name, req.Email, req.Role, req.Status, hash)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, oops.With("operation", "create user").Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"role", string(user.Role),
		"by", actor.ID.String())
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get user").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// List returns users matching filter.
func (s *UserService) List(ctx context.Context, filter UserFilter) ([]*User, error) {
	users, err := s.users.List(ctx, filter.Normalize())
	if err != nil {
		return nil, oops.With("operation", "list users").Wrap(err)
	}
	return users, nil
}

// Update applies patch to the user identified by id. Users may edit their own
// account; only admins may edit others or change role and status.
func (s *UserService) Update(ctx context.Context, actor *User, id ulid.ULID, patch UserPatch) (*User, error) {
	if _, err := s.auth.Decide(ctx, actor, CheckSelfOrAdmin(actor, id)); err != nil {
		return nil, err
	}
	if patch.ChangesPrivileges() {
		if _, err := s.auth.Decide(ctx, actor, CheckAdmin(actor)); err != nil {
			return nil, err
		}
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := ApplyPatch(existing, patch, s.hasher, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, updated); err != nil {
		return nil, oops.With("operation", "update user").With("user_id", id.String()).Wrap(err)
	}

	// Sessions are bound to the email they were issued for.
	emailChanged := updated.Email != existing.Email
	resetByAdmin := patch.Password != nil && actor.ID != id
	if emailChanged || !updated.IsActive() || resetByAdmin {
		s.auth.RevokeSessions(ctx, existing.Email)
	}

	s.logger.InfoContext(ctx, "user updated", "user_id", id.String(), "by", actor.ID.String())
	return updated, nil
}

// Delete removes the user identified by id and ends their sessions. Admin only.
func (s *UserService) Delete(ctx context.Context, actor *User, id ulid.ULID) error {
	if _, err := s.auth.Decide(ctx, actor, CheckAdmin(actor)); err != nil {
		return err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return oops.With("operation", "delete user").With("user_id", id.String()).Wrap(err)
	}
	s.auth.RevokeSessions(ctx, existing.Email)

	s.logger.InfoContext(ctx, "user deleted", "user_id", id.String(), "by", actor.ID.String())
	return nil
}

// SetStatus changes a user's account status. Admin only. Leaving the active
// status ends the user's sessions.
func (s *UserService) SetStatus(ctx context.Context, actor *User, id ulid.ULID, status Status) (*User, error) {
	return s.Update(ctx, actor, id, UserPatch{Status: &status})
}

// EnsureUser creates the account unless its email is already registered.
// Reports whether a user was created. Used for bootstrapping without an actor.
func (s *UserService) EnsureUser(ctx context.Context, req RegisterRequest) (bool, error) {
	if req.Password == "" {
		return false, oops.Code("USER_INVALID_PASSWORD").With("email", req.Email).Errorf("password cannot be empty")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return false, oops.Code("USER_PASSWORD_HASH_FAILED").Wrap(err)
	}
	user, err := NewUser(req.Name, req.Email, req.Role, req.Status, hash)
	if err != nil {
		return false, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return false, nil
		}
		return false, oops.With("operation", "create user").With("email", user.Email).Wrap(err)
	}
	return true, nil
}
