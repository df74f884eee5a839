// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/auth/mocks"
	"github.com/pitchside/pitchside/pkg/errutil"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want auth.Role
		ok   bool
	}{
		{"admin", auth.RoleAdmin, true},
		{"Manager", auth.RoleManager, true},
		{" treasurer ", auth.RoleTreasurer, true},
		{"VIEWER", auth.RoleViewer, true},
		{"coach", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := auth.ParseRole(tt.in)
			if !tt.ok {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "USER_INVALID_ROLE")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"active", "inactive", "suspended", "Suspended"} {
		_, err := auth.ParseStatus(s)
		assert.NoError(t, err, s)
	}
	_, err := auth.ParseStatus("banned")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "USER_INVALID_STATUS")
}

func TestNewUser(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		u, err := auth.NewUser("  Sam Keeper ", "Sam.Keeper@Club.Example", auth.RoleManager, "", "hash")
		require.NoError(t, err)
		assert.Equal(t, "Sam Keeper", u.Name)
		assert.Equal(t, "sam.keeper@club.example", u.Email)
		assert.Equal(t, auth.StatusActive, u.Status, "status defaults to active")
		assert.False(t, u.ID.IsZero())
		assert.Equal(t, u.CreatedAt, u.UpdatedAt)
		assert.True(t, u.IsActive())
		assert.False(t, u.IsAdmin())
	})

	tests := []struct {
		name   string
		uname  string
		email  string
		role   auth.Role
		status auth.Status
		code   string
	}{
		{"empty name", " ", "a@club.example", auth.RoleViewer, "", "USER_INVALID_NAME"},
		{"empty email", "A", "", auth.RoleViewer, "", "USER_INVALID_EMAIL"},
		{"malformed email", "A", "not-an-email", auth.RoleViewer, "", "USER_INVALID_EMAIL"},
		{"display-name email", "A", "A <a@club.example>", auth.RoleViewer, "", "USER_INVALID_EMAIL"},
		{"unknown role", "A", "a@club.example", auth.Role("coach"), "", "USER_INVALID_ROLE"},
		{"unknown status", "A", "a@club.example", auth.RoleViewer, auth.Status("banned"), "USER_INVALID_STATUS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := auth.NewUser(tt.uname, tt.email, tt.role, tt.status, "")
			require.Error(t, err)
			assert.Nil(t, u)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestUserPatch(t *testing.T) {
	assert.True(t, auth.UserPatch{}.IsEmpty())

	name := "New"
	assert.False(t, auth.UserPatch{Name: &name}.IsEmpty())
	assert.False(t, auth.UserPatch{Name: &name}.ChangesPrivileges())

	role := auth.RoleAdmin
	assert.True(t, auth.UserPatch{Role: &role}.ChangesPrivileges())
	status := auth.StatusInactive
	assert.True(t, auth.UserPatch{Status: &status}.ChangesPrivileges())
}

func TestApplyPatch(t *testing.T) {
	base, err := auth.NewUser("Sam", "sam@club.example", auth.RoleViewer, auth.StatusActive, "old-hash")
	require.NoError(t, err)
	now := base.UpdatedAt.Add(time.Hour)

	t.Run("merges supplied fields into a copy", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", "new-secret").Return("new-hash", nil)

		name, email, role := "Samantha", "SAMANTHA@club.example", auth.RoleTreasurer
		password := "new-secret"
		updated, err := auth.ApplyPatch(base, auth.UserPatch{
			Name: &name, Email: &email, Role: &role, Password: &password,
		}, hasher, now)
		require.NoError(t, err)

		assert.Equal(t, "Samantha", updated.Name)
		assert.Equal(t, "samantha@club.example", updated.Email)
		assert.Equal(t, auth.RoleTreasurer, updated.Role)
		assert.Equal(t, "new-hash", updated.PasswordHash)
		assert.Equal(t, now, updated.UpdatedAt)
		assert.Equal(t, base.ID, updated.ID)

		assert.Equal(t, "Sam", base.Name, "original is not modified")
		assert.Equal(t, "old-hash", base.PasswordHash)
	})

	t.Run("empty patch only bumps updated_at", func(t *testing.T) {
		updated, err := auth.ApplyPatch(base, auth.UserPatch{}, mocks.NewMockPasswordHasher(t), now)
		require.NoError(t, err)
		assert.Equal(t, base.Name, updated.Name)
		assert.Equal(t, now, updated.UpdatedAt)
	})

	t.Run("invalid fields are rejected", func(t *testing.T) {
		blank, bad := "", "nope"
		role, status := auth.Role("coach"), auth.Status("banned")

		_, err := auth.ApplyPatch(base, auth.UserPatch{Name: &blank}, nil, now)
		errutil.AssertErrorCode(t, err, "USER_INVALID_NAME")
		_, err = auth.ApplyPatch(base, auth.UserPatch{Email: &bad}, nil, now)
		errutil.AssertErrorCode(t, err, "USER_INVALID_EMAIL")
		_, err = auth.ApplyPatch(base, auth.UserPatch{Role: &role}, nil, now)
		errutil.AssertErrorCode(t, err, "USER_INVALID_ROLE")
		_, err = auth.ApplyPatch(base, auth.UserPatch{Status: &status}, nil, now)
		errutil.AssertErrorCode(t, err, "USER_INVALID_STATUS")
		_, err = auth.ApplyPatch(base, auth.UserPatch{Password: &blank}, mocks.NewMockPasswordHasher(t), now)
		errutil.AssertErrorCode(t, err, "USER_INVALID_PASSWORD")
	})

	t.Run("hash failure", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", "new-secret").Return("", errors.New("entropy exhausted"))

		password := "new-secret"
		_, err := auth.ApplyPatch(base, auth.UserPatch{Password: &password}, hasher, now)
		errutil.AssertErrorCode(t, err, "USER_PASSWORD_HASH_FAILED")
	})
}

func TestUserFilter_Normalize(t *testing.T) {
	f := auth.UserFilter{Offset: -3, Limit: 0, Search: "  keeper "}.Normalize()
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, auth.DefaultUserListLimit, f.Limit)
	assert.Equal(t, "keeper", f.Search)

	f = auth.UserFilter{Limit: 5000}.Normalize()
	assert.Equal(t, auth.MaxUserListLimit, f.Limit)

	f = auth.UserFilter{Offset: 20, Limit: 10}.Normalize()
	assert.Equal(t, 20, f.Offset)
	assert.Equal(t, 10, f.Limit)
}
