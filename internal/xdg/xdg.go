// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package xdg provides XDG Base Directory paths for Pitchside.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "pitchside"

// ConfigDir returns the XDG config directory for pitchside.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path, ConfigDir()/config.yaml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
