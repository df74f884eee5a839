// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Command gen-schema writes the users seed file JSON Schema.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/pitchside/pitchside/internal/seed"
)

var defaultOutPath = filepath.Join("schemas", "users-seed.schema.json")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("gen-schema", pflag.ContinueOnError)
	outPath := fs.StringP("out", "o", defaultOutPath, "output file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	schema, err := seed.GenerateSchema()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o750); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("path", *outPath).Wrap(err)
	}
	if err := os.WriteFile(*outPath, append(schema, '\n'), 0o600); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("path", *outPath).Wrap(err)
	}

	fmt.Fprintf(stdout, "Generated %s\n", *outPath)
	return nil
}
