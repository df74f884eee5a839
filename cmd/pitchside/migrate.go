// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside/internal/store"
)

// MigrationRunner wraps the methods used from store.Migrator by the migrate
// subcommands.
type MigrationRunner interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// migratorFactory opens a MigrationRunner for a database URL.
type migratorFactory func(databaseURL string) (MigrationRunner, error)

func defaultMigratorFactory(databaseURL string) (MigrationRunner, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(defaultMigratorFactory)
}

func newMigrateCmd(factory migratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back and inspect the PostgreSQL schema migrations
embedded in this binary. Without a subcommand, applies all pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m MigrationRunner) error {
				return migrateUp(cmd, m, 0)
			})
		},
	}

	var steps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m MigrationRunner) error {
				return migrateUp(cmd, m, steps)
			})
		},
	}
	up.Flags().IntVar(&steps, "steps", 0, "apply at most this many migrations (0 = all)")

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m MigrationRunner) error {
				if all {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("Rolled back all migrations")
					return nil
				}
				if err := m.Steps(-1); err != nil {
					return err
				}
				cmd.Println("Rolled back one migration")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m MigrationRunner) error {
				return migrateStatus(cmd, m)
			})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag. Use only
after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("MIGRATION_INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			return withMigrator(cmd, factory, func(m MigrationRunner) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Schema version forced to %d\n", v)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func withMigrator(cmd *cobra.Command, factory migratorFactory, fn func(MigrationRunner) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database url is required (database.url, PITCHSIDE_DATABASE__URL or DATABASE_URL)")
	}

	m, err := factory(cfg.Database.URL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: failed to close migrator: %v\n", closeErr)
		}
	}()
	return fn(m)
}

func migrateUp(cmd *cobra.Command, m MigrationRunner, steps int) error {
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}

	if steps > 0 {
		steps = min(steps, len(pending))
		if err := m.Steps(steps); err != nil {
			return err
		}
		cmd.Printf("Applied %d migration(s)\n", steps)
		return nil
	}
	if err := m.Up(); err != nil {
		return err
	}
	cmd.Printf("Applied %d migration(s)\n", len(pending))
	return nil
}

func migrateStatus(cmd *cobra.Command, m MigrationRunner) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	if v == 0 {
		cmd.Println("Schema version: none")
	} else {
		cmd.Printf("Schema version: %d\n", v)
	}
	if dirty {
		cmd.Println("State: DIRTY (a migration failed; repair it, then run 'migrate force')")
	}
	if len(pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	cmd.Printf("Pending: %d\n", len(pending))
	for _, p := range pending {
		cmd.Printf("  %06d\n", p)
	}
	return nil
}
