// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside/internal/auth"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Reads a single password line from stdin and prints its argon2id hash,
in the format stored in users.password_hash.

  printf '%s\n' "$PASSWORD" | pitchside hash-password`,
		Args: cobra.NoArgs,
		RunE: runHashPassword,
	}
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return oops.Code("USER_INVALID_PASSWORD").Errorf("password cannot be empty")
	}

	hash, err := auth.NewArgon2idHasher().Hash(password)
	if err != nil {
		return oops.Code("USER_PASSWORD_HASH_FAILED").Wrap(err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}
