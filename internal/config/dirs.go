// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvironmentFileName is the per-environment configuration file.
	EnvironmentFileName = "distrobox.ini"
	// ArtifactFileName is the persisted build recipe.
	ArtifactFileName = "Containerfile"
	// RecordFileName is the BuiltImageRecord file.
	RecordFileName = "build.toml"
	// LockFileName is the per-environment build lock.
	LockFileName = "build.lock"
	// HistoryFileName is the build history database in the cache root.
	HistoryFileName = "history.db"
)

// Dirs holds the resolved configuration and cache roots.
type Dirs struct {
	Config string
	Cache  string
}

// ResolveDirs applies the XDG base directory rules:
// $XDG_CONFIG_HOME (default ~/.config) and $XDG_CACHE_HOME (default ~/.cache),
// each with an AppName subdirectory.
func ResolveDirs() (Dirs, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	cacheHome := os.Getenv("XDG_CACHE_HOME")

	if configHome == "" || cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Dirs{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		if cacheHome == "" {
			cacheHome = filepath.Join(home, ".cache")
		}
	}

	return Dirs{
		Config: filepath.Join(configHome, AppName),
		Cache:  filepath.Join(cacheHome, AppName),
	}, nil
}

// SettingsFile returns the default settings file path.
func (d Dirs) SettingsFile() string {
	return filepath.Join(d.Config, ConfigFileName+"."+ConfigFileExt)
}

// EnvironmentConfigDir returns the readable config directory of an environment.
func (d Dirs) EnvironmentConfigDir(name string) string {
	return filepath.Join(d.Config, name)
}

// EnvironmentCacheDir returns the writable cache directory of an environment.
func (d Dirs) EnvironmentCacheDir(name string) string {
	return filepath.Join(d.Cache, name)
}

// HistoryFile returns the build history database path.
func (d Dirs) HistoryFile() string {
	return filepath.Join(d.Cache, HistoryFileName)
}
