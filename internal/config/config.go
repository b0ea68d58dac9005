// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xz-dev/distrobox-plus/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "distrobox-boost"
	// ConfigFileName is the name of the settings file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the settings file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DISTROBOX_BOOST"

	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// loadWithOptions performs option-driven settings loading. It returns the
// decoded settings and the file they came from ("" when only defaults and
// environment overrides apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("builder", string(defaults.Builder))
	v.SetDefault("lock_timeout", defaults.LockTimeout)
	v.SetDefault("recipe.upgrade", defaults.Recipe.Upgrade)
	v.SetDefault("recipe.install_deps", defaults.Recipe.InstallDeps)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithIssue(issue.SettingsInvalidId).
				WithOperation("load settings").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'distrobox-boost config init' to write a default settings file").
				Wrap(fmt.Errorf("settings file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dirs, err := ResolveDirs()
		if err != nil {
			return nil, "", err
		}
		if p := dirs.SettingsFile(); fileExists(p) {
			resolvedPath = p
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithIssue(issue.SettingsInvalidId).
				WithOperation("load settings").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Run 'distrobox-boost config show' to see the effective settings").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithIssue(issue.SettingsInvalidId).
			WithOperation("decode settings").
			Wrap(err).
			BuildError()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithIssue(issue.SettingsInvalidId).
			WithOperation("validate settings").
			WithSuggestion("Check the DISTROBOX_BOOST_* environment variables").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("settings file %s is larger than %d bytes", path, maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile settings schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err)
	}

	// Merged values keep defaults for absent keys; env still wins.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}

	return nil
}

func formatCUEError(err error) error {
	return fmt.Errorf("%s", strings.TrimSpace(cueerrors.Details(err, nil)))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default settings to path unless a file is
// already there. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write settings file: %w", err)
	}

	return true, nil
}

// GenerateCUE generates a CUE representation of the settings.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// distrobox-boost settings\n\n")

	fmt.Fprintf(&sb, "builder: %q\n", string(cfg.Builder))
	fmt.Fprintf(&sb, "lock_timeout: %q\n", cfg.LockTimeout.String())

	sb.WriteString("\nrecipe: {\n")
	fmt.Fprintf(&sb, "\tupgrade: %v\n", cfg.Recipe.Upgrade)
	fmt.Fprintf(&sb, "\tinstall_deps: %v\n", cfg.Recipe.InstallDeps)
	sb.WriteString("}\n")

	sb.WriteString("\nhistory: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.History.Enabled)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
