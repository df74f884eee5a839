// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside/internal/seed"
)

// NewValidateSeedsCmd creates the validate-seeds subcommand.
func NewValidateSeedsCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "validate-seeds",
		Short: "Validate user seed files without touching the database",
		Long: `Validates user seed files against the seed schema and checks for
duplicate emails and unsupported format versions.
Does NOT start the server or require a database connection.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch seed file errors early:
  pitchside validate-seeds --file seeds/users.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidateSeeds(cmd, files)
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "seed file to validate (repeatable)")
	_ = cmd.MarkFlagRequired("file") //nolint:errcheck // flag is defined above

	return cmd
}

func runValidateSeeds(cmd *cobra.Command, files []string) error {
	var failed int
	for _, path := range files {
		f, err := seed.Load(path)
		if err != nil {
			failed++
			detail := err.Error()
			if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Public() != "" {
				detail = oopsErr.Public()
			}
			slog.Error("seed validation failed", "file", path, "detail", detail)
			cmd.PrintErrf("%s: invalid\n%s\n", path, detail)
			continue
		}
		cmd.Printf("%s: ok (%d users)\n", path, len(f.Users))
	}

	if failed > 0 {
		return oops.Code("SEED_VALIDATION_FAILED").
			With("failed", failed).
			Errorf("validation failed: %d of %d seed files invalid", failed, len(files))
	}

	slog.Info("all seed files valid", "count", len(files))
	return nil
}
