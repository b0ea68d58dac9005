// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xz-dev/distrobox-plus/internal/issue"
	"github.com/xz-dev/distrobox-plus/internal/testutil"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Builder != BuilderAuto {
		t.Errorf("Builder = %q, want auto", cfg.Builder)
	}
	if cfg.LockTimeout != DefaultLockTimeout {
		t.Errorf("LockTimeout = %s, want %s", cfg.LockTimeout, DefaultLockTimeout)
	}
	if !cfg.Recipe.Upgrade || !cfg.Recipe.InstallDeps {
		t.Error("recipe phases should be enabled by default")
	}
	if !cfg.History.Enabled {
		t.Error("history should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default settings should validate: %v", err)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	testutil.SetXDGDirs(t, t.TempDir())

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if loaded.Config.Builder != BuilderAuto {
		t.Errorf("Builder = %q, want auto", loaded.Config.Builder)
	}
}

func TestLoad_FromDefaultLocation(t *testing.T) {
	xdg := testutil.SetXDGDirs(t, t.TempDir())

	path := filepath.Join(xdg.Config, AppName, "config.cue")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("builder: \"podman\"\nrecipe: upgrade: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}
	cfg := loaded.Config
	if cfg.Builder != BuilderPodman {
		t.Errorf("Builder = %q, want podman", cfg.Builder)
	}
	if cfg.Recipe.Upgrade {
		t.Error("recipe.upgrade should be false")
	}
	if !cfg.Recipe.InstallDeps {
		t.Error("recipe.install_deps should keep its default")
	}
}

func TestLoad_CustomPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeSettings(t, `lock_timeout: "90s"
history: enabled: false
`)

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Config.LockTimeout != 90*time.Second {
		t.Errorf("LockTimeout = %s, want 90s", loaded.Config.LockTimeout)
	}
	if loaded.Config.History.Enabled {
		t.Error("history.enabled should be false")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DISTROBOX_BOOST_BUILDER", "docker")
	t.Setenv("DISTROBOX_BOOST_RECIPE_INSTALL_DEPS", "false")
	path := writeSettings(t, "builder: \"buildah\"\n")

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Config.Builder != BuilderDocker {
		t.Errorf("Builder = %q, want docker (env wins over file)", loaded.Config.Builder)
	}
	if loaded.Config.Recipe.InstallDeps {
		t.Error("recipe.install_deps should be overridden to false")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown builder", "builder: \"kaniko\"\n", "builder"},
		{"unknown field", "colour: \"red\"\n", "colour"},
		{"bad duration", "lock_timeout: \"soon\"\n", "lock_timeout"},
		{"syntax error", "builder: \n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", t.TempDir())
			path := writeSettings(t, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if issue.IdOf(err) != issue.SettingsInvalidId {
				t.Errorf("IdOf() = %d, want SettingsInvalidId", issue.IdOf(err))
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_MissingCustomPath(t *testing.T) {
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ActionableError, got %v", err)
	}
	if !ae.HasSuggestions() {
		t.Error("missing-file error should carry suggestions")
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Builder = BuilderPodman
	cfg.LockTimeout = 5 * time.Minute
	cfg.Recipe.Upgrade = false

	path := writeSettings(t, GenerateCUE(cfg))
	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated settings should load: %v", err)
	}
	if *loaded.Config != *cfg {
		t.Errorf("loaded %+v, want %+v", *loaded.Config, *cfg)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")
	wrote, err := CreateDefaultConfig(path)
	if err != nil || !wrote {
		t.Fatalf("CreateDefaultConfig() = %v, %v; want true, nil", wrote, err)
	}
	wrote, err = CreateDefaultConfig(path)
	if err != nil || wrote {
		t.Errorf("second CreateDefaultConfig() = %v, %v; want false, nil", wrote, err)
	}
}

func TestBuilderName_Validate(t *testing.T) {
	t.Parallel()

	for _, b := range []BuilderName{BuilderAuto, BuilderBuildah, BuilderPodman, BuilderDocker} {
		if err := b.Validate(); err != nil {
			t.Errorf("%q.Validate() = %v", b, err)
		}
	}
	if err := BuilderName("nerdctl").Validate(); !errors.Is(err, ErrInvalidBuilder) {
		t.Errorf("Validate() = %v, want ErrInvalidBuilder", err)
	}
	if BuilderAuto.Preferred() != "" || BuilderPodman.Preferred() != "podman" {
		t.Error("Preferred() mismatch")
	}
}
