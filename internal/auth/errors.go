// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Sentinel errors. Every failure returned by this package wraps exactly one
// of the first five so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown identity and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when no usable session backs a request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated user lacks a required role
	// or does not own the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrSessionNotFound is returned by SessionStore.Resolve for unknown tokens.
	ErrSessionNotFound = fmt.Errorf("session not found: %w", ErrUnauthenticated)

	// ErrSessionExpired is returned by SessionStore.Resolve for tokens past their expiry.
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrUnauthenticated)
)

// Reasons attached to authentication failures under the "reason" context key.
// They are for logs only; clients see a collapsed message.
const (
	ReasonNoSession       = "no_session"
	ReasonSessionNotFound = "session_not_found"
	ReasonSessionExpired  = "session_expired"
	ReasonUserMissing     = "user_missing"
	ReasonAccountInactive = "account_inactive"
	ReasonUnknownIdentity = "unknown_identity"
	ReasonBadPassword     = "bad_password"
)

// Public messages for authentication failures.
const (
	MsgNoSession          = "No session found. Please login."
	MsgInvalidSession     = "Invalid or expired session. Please login again."
	MsgUserMissing        = "User not found"
	MsgAccountInactive    = "User account is not active"
	MsgInvalidCredentials = "Incorrect email or password"
	MsgForbidden          = "Not enough permissions"
	MsgAdminRequired      = "Admin access required"
)

// Reason returns the internal failure reason recorded on err, or "" if none.
func Reason(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	if r, ok := oopsErr.Context()["reason"].(string); ok {
		return r
	}
	return ""
}

// PublicMessage returns the client-safe message recorded on err, or fallback.
func PublicMessage(err error, fallback string) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	return fallback
}

func unauthenticated(reason, public string) error {
	return oops.Code("AUTH_UNAUTHENTICATED").
		With("reason", reason).
		Public(public).
		Wrap(ErrUnauthenticated)
}

func invalidCredentials(reason string) error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		With("reason", reason).
		Public(MsgInvalidCredentials).
		Wrap(ErrInvalidCredentials)
}
