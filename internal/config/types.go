// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// BuilderAuto probes the supported builders in priority order.
	BuilderAuto BuilderName = "auto"
	// BuilderBuildah prefers buildah.
	BuilderBuildah BuilderName = "buildah"
	// BuilderPodman prefers podman.
	BuilderPodman BuilderName = "podman"
	// BuilderDocker prefers docker.
	BuilderDocker BuilderName = "docker"

	// DefaultLockTimeout bounds how long a create call waits for another
	// build of the same environment.
	DefaultLockTimeout = 30 * time.Minute
)

var (
	// ErrInvalidBuilder is returned when a BuilderName value is not recognized.
	ErrInvalidBuilder = errors.New("invalid builder")
	// ErrInvalidLockTimeout is returned for a non-positive lock timeout.
	ErrInvalidLockTimeout = errors.New("invalid lock timeout")
)

type (
	// BuilderName names a preferred image builder.
	BuilderName string

	// Config holds the application settings.
	Config struct {
		Builder     BuilderName   `json:"builder" mapstructure:"builder"`
		LockTimeout time.Duration `json:"lock_timeout" mapstructure:"lock_timeout"`
		Recipe      RecipeConfig  `json:"recipe" mapstructure:"recipe"`
		History     HistoryConfig `json:"history" mapstructure:"history"`
		UI          UIConfig      `json:"ui" mapstructure:"ui"`
	}

	// RecipeConfig controls the optional phases of generated build recipes.
	// Both values are part of the build fingerprint.
	RecipeConfig struct {
		Upgrade     bool `json:"upgrade" mapstructure:"upgrade"`
		InstallDeps bool `json:"install_deps" mapstructure:"install_deps"`
	}

	// HistoryConfig controls the build attempt log.
	HistoryConfig struct {
		Enabled bool `json:"enabled" mapstructure:"enabled"`
	}

	// UIConfig controls terminal output.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Builder:     BuilderAuto,
		LockTimeout: DefaultLockTimeout,
		Recipe: RecipeConfig{
			Upgrade:     true,
			InstallDeps: true,
		},
		History: HistoryConfig{Enabled: true},
	}
}

// Validate returns an error wrapping ErrInvalidBuilder for unknown names.
func (b BuilderName) Validate() error {
	switch b {
	case BuilderAuto, BuilderBuildah, BuilderPodman, BuilderDocker:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected auto, buildah, podman or docker)", ErrInvalidBuilder, string(b))
	}
}

// Preferred returns the builder to try first, or "" for auto.
func (b BuilderName) Preferred() string {
	if b == BuilderAuto {
		return ""
	}
	return string(b)
}

// Validate checks the settings for values the schema cannot express.
func (c *Config) Validate() error {
	if err := c.Builder.Validate(); err != nil {
		return err
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLockTimeout, c.LockTimeout)
	}
	return nil
}
