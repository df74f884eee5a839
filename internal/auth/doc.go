// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package auth provides session-based authentication and role-based
// authorization for Pitchside.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a validated name, email, role and status
//   - NewSession - creates a Session with a validated identity and lifetime
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Sessions
//
// SessionStore keeps sessions in process memory, keyed by the SHA-256 of the
// token. Tokens are 32 random bytes, base64url encoded. A session is live
// while now <= ExpiresAt; expired sessions are evicted lazily by Resolve or in
// bulk by Sweep. A restart ends every session.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, logout, request authentication and role checks
//   - UserService - account management on behalf of an authenticated actor
//
// The pure rule functions CheckRole, CheckAdmin and CheckSelfOrAdmin encode
// the authorization policy: admins pass every check, other roles must match
// exactly, and users may always act on their own account.
//
// # Errors
//
// Failures are oops errors wrapping one of ErrInvalidCredentials,
// ErrUnauthenticated, ErrForbidden, ErrNotFound or ErrDuplicateEmail. The
// "reason" context key keeps the internal cause (see Reason) for logs, while
// PublicMessage gives the text that is safe to show clients.
package auth
