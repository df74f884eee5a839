// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CheckRole allows user when they hold role or are an admin.
func CheckRole(user *User, role Role) error {
	if user.Role == role || user.IsAdmin() {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("required_role", string(role)).
		With("user_role", string(user.Role)).
		Public(MsgForbidden).
		Wrap(ErrForbidden)
}

// CheckAdmin allows only admins.
func CheckAdmin(user *User) error {
	if user.IsAdmin() {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("required_role", string(RoleAdmin)).
		With("user_role", string(user.Role)).
		Public(MsgAdminRequired).
		Wrap(ErrForbidden)
}

// CheckSelfOrAdmin allows user to act on targetID when it is their own
// account or they are an admin.
func CheckSelfOrAdmin(user *User, targetID ulid.ULID) error {
	if user.ID == targetID || user.IsAdmin() {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("target_id", targetID.String()).
		With("user_role", string(user.Role)).
		Public(MsgForbidden).
		Wrap(ErrForbidden)
}
