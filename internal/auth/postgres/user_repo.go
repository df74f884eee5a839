// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package postgres implements auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pitchside/pitchside/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool the repository uses, so unit tests
// can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, name, email, role, status, password_hash, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		string(user.Role),
		string(user.Status),
		nullableHash(user.PasswordHash),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Public("Email already registered").
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Public("User not found").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Public("User not found").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// List returns users ordered by creation time. Search matches name or email
// as a case-insensitive substring.
func (r *UserRepository) List(ctx context.Context, filter auth.UserFilter) ([]*auth.User, error) {
	filter = filter.Normalize()

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3
	`, escapeLike(filter.Search), filter.Offset, filter.Limit)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0, filter.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user row").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// Update replaces a user's mutable fields.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			name = $2,
			email = $3,
			role = $4,
			status = $5,
			password_hash = $6,
			updated_at = $7
		WHERE id = $1
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		string(user.Role),
		string(user.Status),
		nullableHash(user.PasswordHash),
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Public("Email already registered").
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", user.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", user.ID.String()).
			Public("User not found").
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Public("User not found").
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		name         string
		email        string
		role         string
		status       string
		passwordHash *string
		createdAt    time.Time
		updatedAt    time.Time
	)

	if err := row.Scan(&idStr, &name, &email, &role, &status, &passwordHash, &createdAt, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap and inspect pgx.ErrNoRows
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ROW").With("id", idStr).Wrap(err)
	}

	user := &auth.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      auth.Role(role),
		Status:    auth.Status(status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	return user, nil
}

func nullableHash(hash string) *string {
	if hash == "" {
		return nil
	}
	return &hash
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
