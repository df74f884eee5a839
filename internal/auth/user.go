// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is a user's access level. There is no hierarchy between roles other
// than admin passing every role check.
type Role string

// Known roles.
const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleTreasurer Role = "treasurer"
	RoleViewer    Role = "viewer"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleTreasurer, RoleViewer}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTreasurer, RoleViewer:
		return true
	}
	return false
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", oops.Code("USER_INVALID_ROLE").With("role", s).Errorf("unknown role %q", s)
	}
	return r, nil
}

// Status is a user's account state. Only active users may authenticate.
type Status string

// Known statuses.
const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", oops.Code("USER_INVALID_STATUS").With("status", s).Errorf("unknown status %q", s)
	}
	return st, nil
}

// User is a club administrator account.
type User struct {
	ID           ulid.ULID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a validated User. An empty status defaults to active.
// passwordHash may be empty for accounts that cannot log in yet.
func NewUser(name, email string, role Role, status Status, passwordHash string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, oops.Code("USER_INVALID_NAME").Errorf("name cannot be empty")
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, oops.Code("USER_INVALID_ROLE").With("role", string(role)).Errorf("unknown role %q", role)
	}
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return nil, oops.Code("USER_INVALID_STATUS").With("status", string(status)).Errorf("unknown status %q", status)
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        normalized,
		Role:         role,
		Status:       status,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail validates a bare address and lower-cases it.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", oops.Code("USER_INVALID_EMAIL").With("email", email).Errorf("invalid email address")
	}
	return strings.ToLower(email), nil
}

// UserPatch is a partial update. Nil fields are left unchanged.
type UserPatch struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Status   *Status `json:"status,omitempty"`
	Password *string `json:"password,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.Status == nil && p.Password == nil
}

// ChangesPrivileges reports whether the patch touches role or status.
func (p UserPatch) ChangesPrivileges() bool {
	return p.Role != nil || p.Status != nil
}

// ApplyPatch returns a copy of u with the patch merged in. A supplied password
// is hashed with hasher; the caller never stores plaintext.
func ApplyPatch(u *User, p UserPatch, hasher PasswordHasher, now time.Time) (*User, error) {
	updated := *u

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, oops.Code("USER_INVALID_NAME").Errorf("name cannot be empty")
		}
		updated.Name = name
	}
	if p.Email != nil {
		email, err := NormalizeEmail(*p.Email)
		if err != nil {
			return nil, err
		}
		updated.Email = email
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, oops.Code("USER_INVALID_ROLE").With("role", string(*p.Role)).Errorf("unknown role %q", *p.Role)
		}
		updated.Role = *p.Role
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, oops.Code("USER_INVALID_STATUS").With("status", string(*p.Status)).Errorf("unknown status %q", *p.Status)
		}
		updated.Status = *p.Status
	}
	if p.Password != nil {
		if *p.Password == "" {
			return nil, oops.Code("USER_INVALID_PASSWORD").Errorf("password cannot be empty")
		}
		hash, err := hasher.Hash(*p.Password)
		if err != nil {
			return nil, oops.Code("USER_PASSWORD_HASH_FAILED").Wrap(err)
		}
		updated.PasswordHash = hash
	}

	updated.UpdatedAt = now
	return &updated, nil
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Offset int
	Limit  int
	Search string // case-insensitive substring of name or email
}

// Listing limits.
const (
	DefaultUserListLimit = 100
	MaxUserListLimit     = 100
)

// Normalize clamps the filter to valid bounds.
func (f UserFilter) Normalize() UserFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultUserListLimit
	}
	if f.Limit > MaxUserListLimit {
		f.Limit = MaxUserListLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// UserLookup resolves users for the authenticator and the authorization gate.
type UserLookup interface {
	// GetByEmail retrieves a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)
}

// UserRepository manages user persistence.
type UserRepository interface {
	UserLookup

	// Create stores a new user. Returns ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, user *User) error

	// Update replaces a user's mutable fields. Returns ErrNotFound or ErrDuplicateEmail.
	Update(ctx context.Context, user *User) error

	// Delete removes a user. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// List returns users ordered by creation time.
	List(ctx context.Context, filter UserFilter) ([]*User, error)
}
