// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/auth/postgres"
	"github.com/pitchside/pitchside/internal/seed"
	"github.com/pitchside/pitchside/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file    string
	timeout time.Duration
}

// databaseFactory opens the connection pool for one-shot commands.
type databaseFactory func(ctx context.Context, url string, opts store.ConnectOptions) (Database, error)

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return newSeedCmd((&ServeDeps{}).withDefaults().DatabaseFactory)
}

func newSeedCmd(openDB databaseFactory) *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create user accounts from a seed file",
		Long: `Creates the accounts listed in a YAML seed file. Accounts whose email
is already registered are skipped, so the command can be run repeatedly.

Passwords may be given inline or, preferably, through password_env, naming an
environment variable that holds the password.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg, openDB)
		},
	}

	cmd.Flags().StringVarP(&cfg.file, "file", "f", "", "seed file path (required)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	_ = cmd.MarkFlagRequired("file") //nolint:errcheck // flag is defined above

	return cmd
}

func runSeed(cmd *cobra.Command, cfg *seedConfig, openDB databaseFactory) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Validate the file before touching the database.
	file, err := seed.Load(cfg.file)
	if err != nil {
		return err
	}

	if appCfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database url is required (database.url, PITCHSIDE_DATABASE__URL or DATABASE_URL)")
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	db, err := openDB(ctx, appCfg.Database.URL, store.ConnectOptions{MaxAttempts: appCfg.Database.ConnectAttempts})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	users, err := seedUserService(db)
	if err != nil {
		return err
	}

	seeder := &seed.Seeder{Users: users, Logger: slog.Default()}
	res, err := seeder.Apply(ctx, file)
	if err != nil {
		return err
	}

	cmd.Printf("Seeding complete: %d created, %d already present\n", res.Created, res.Skipped)
	return nil
}

// seedUserService builds a UserService over db. Seeding never issues
// sessions, so the session store is local to the command.
func seedUserService(db Database) (*auth.UserService, error) {
	repo := postgres.NewUserRepository(db)
	hasher := auth.NewArgon2idHasher()
	authService, err := auth.NewAuthService(repo, auth.NewSessionStore(), hasher)
	if err != nil {
		return nil, oops.Code("SEED_INIT_FAILED").Wrap(err)
	}
	users, err := auth.NewUserService(repo, authService, hasher, slog.Default())
	if err != nil {
		return nil, oops.Code("SEED_INIT_FAILED").Wrap(err)
	}
	return users, nil
}
