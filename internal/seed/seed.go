// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package seed loads user accounts from a YAML seed file and creates the
// missing ones. Seeding is idempotent: accounts whose email is already
// registered are skipped, never updated.
package seed

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/pitchside/pitchside/internal/auth"
)

// SupportedVersions is the range of seed file format versions this build reads.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// File is a users seed file.
type File struct {
	Version string `yaml:"version" json:"version" jsonschema:"required,pattern=^[0-9]+\\.[0-9]+\\.[0-9]+$,description=Seed file format version"`
	Users   []User `yaml:"users" json:"users" jsonschema:"required,minItems=1"`
}

// User is one account in a seed file. Exactly one of Password and
// PasswordEnv must be set.
type User struct {
	Name        string `yaml:"name" json:"name" jsonschema:"required,minLength=1"`
	Email       string `yaml:"email" json:"email" jsonschema:"required,minLength=3"`
	Role        string `yaml:"role" json:"role" jsonschema:"required,enum=admin,enum=manager,enum=treasurer,enum=viewer"`
	Status      string `yaml:"status,omitempty" json:"status,omitempty" jsonschema:"enum=active,enum=inactive,enum=suspended"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty" jsonschema:"description=Plaintext password; prefer password_env"`
	PasswordEnv string `yaml:"password_env,omitempty" json:"password_env,omitempty" jsonschema:"description=Environment variable holding the password"`
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return f, nil
}

// Parse validates data against the seed schema and the supported format
// versions, then decodes it.
func Parse(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("SEED_INVALID_YAML").Wrap(err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks constraints the schema cannot express.
func (f *File) Validate() error {
	if err := checkVersion(f.Version); err != nil {
		return err
	}

	seen := make(map[string]int, len(f.Users))
	for i, u := range f.Users {
		if (u.Password == "") == (u.PasswordEnv == "") {
			return oops.Code("SEED_INVALID_USER").
				With("index", i).
				With("email", u.Email).
				Errorf("users[%d]: exactly one of password and password_env is required", i)
		}
		email, err := auth.NormalizeEmail(u.Email)
		if err != nil {
			return oops.Code("SEED_INVALID_USER").With("index", i).Errorf("users[%d]: invalid email %q", i, u.Email)
		}
		if prev, dup := seen[email]; dup {
			return oops.Code("SEED_DUPLICATE_EMAIL").
				With("email", email).
				Errorf("users[%d]: email %s already listed at users[%d]", i, email, prev)
		}
		seen[email] = i
	}
	return nil
}

func checkVersion(v string) error {
	version, err := semver.StrictNewVersion(v)
	if err != nil {
		return oops.Code("SEED_UNSUPPORTED_VERSION").With("version", v).Wrap(err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return oops.Code("SEED_UNSUPPORTED_VERSION").Wrap(err)
	}
	if !constraint.Check(version) {
		return oops.Code("SEED_UNSUPPORTED_VERSION").
			With("version", v).
			With("supported", SupportedVersions).
			Errorf("seed file version %s is not supported (this build reads %s)", v, SupportedVersions)
	}
	return nil
}

// UserEnsurer creates an account unless its email is already registered.
// auth.UserService implements it.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, req auth.RegisterRequest) (bool, error)
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
}

// Seeder applies seed files.
type Seeder struct {
	Users     UserEnsurer
	Logger    *slog.Logger
	LookupEnv func(string) (string, bool) // defaults to os.LookupEnv
}

// Apply creates every account in f that does not exist yet. It stops at the
// first failure; accounts created before it remain.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var res Result
	for i, u := range f.Users {
		req, err := u.request(lookup)
		if err != nil {
			return res, oops.With("index", i).Wrap(err)
		}

		created, err := s.Users.EnsureUser(ctx, req)
		if err != nil {
			return res, oops.Code("SEED_APPLY_FAILED").With("index", i).With("email", u.Email).Wrap(err)
		}
		if created {
			res.Created++
			logger.InfoContext(ctx, "seeded user", "email", req.Email, "role", string(req.Role))
		} else {
			res.Skipped++
			logger.DebugContext(ctx, "seed user already exists", "email", req.Email)
		}
	}
	return res, nil
}

func (u User) request(lookup func(string) (string, bool)) (auth.RegisterRequest, error) {
	password := u.Password
	if u.PasswordEnv != "" {
		v, ok := lookup(u.PasswordEnv)
		if !ok || v == "" {
			return auth.RegisterRequest{}, oops.Code("SEED_PASSWORD_MISSING").
				With("email", u.Email).
				With("env", u.PasswordEnv).
				Errorf("environment variable %s is not set", u.PasswordEnv)
		}
		password = v
	}

	role, err := auth.ParseRole(u.Role)
	if err != nil {
		return auth.RegisterRequest{}, err
	}
	var status auth.Status
	if strings.TrimSpace(u.Status) != "" {
		if status, err = auth.ParseStatus(u.Status); err != nil {
			return auth.RegisterRequest{}, err
		}
	}

	return auth.RegisterRequest{
		Name:     u.Name,
		Email:    u.Email,
		Password: password,
		Role:     role,
		Status:   status,
	}, nil
}
