// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xz-dev/distrobox-plus/internal/issue"
)

func TestImageTagFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want ImageTag
	}{
		{"dev", "dev:latest"},
		{"MyBox", "mybox:latest"},
		{"arch-dev_2", "arch-dev_2:latest"},
	}
	for _, tt := range tests {
		if got := ImageTagFor(tt.name); got != tt.want {
			t.Errorf("ImageTagFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder(t)
	opts := newMockEngineOptions(recorder)

	for _, typ := range Priority() {
		engine, err := NewEngine(typ, opts...)
		if err != nil {
			t.Fatalf("NewEngine(%s): %v", typ, err)
		}
		if engine.Name() != string(typ) {
			t.Errorf("NewEngine(%s).Name() = %q", typ, engine.Name())
		}
	}

	if _, err := NewEngine("rkt", opts...); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("NewEngine(rkt) error = %v, want ErrUnknownEngine", err)
	}
}

// lookOnly returns a LookPathFunc that only finds the named binaries.
func lookOnly(found ...string) LookPathFunc {
	return func(file string) (string, error) {
		if slices.Contains(found, file) {
			return "/usr/bin/" + file, nil
		}
		return "", exec.ErrNotFound
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		preferred EngineType
		found     []string
		want      EngineType
	}{
		{"auto prefers buildah", EngineTypeAuto, []string{"buildah", "podman", "docker"}, EngineTypeBuildah},
		{"empty means auto", "", []string{"podman", "docker"}, EngineTypePodman},
		{"auto falls to docker", EngineTypeAuto, []string{"docker"}, EngineTypeDocker},
		{"preferred docker wins", EngineTypeDocker, []string{"buildah", "podman", "docker"}, EngineTypeDocker},
		{"preferred missing falls back", EngineTypePodman, []string{"buildah", "docker"}, EngineTypeBuildah},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := NewMockCommandRecorder(t)
			engine, err := Select(t.Context(), tt.preferred,
				WithExecCommand(recorder.CommandFunc()),
				WithLookPath(lookOnly(tt.found...)),
			)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if engine.Name() != string(tt.want) {
				t.Errorf("Select() = %s, want %s", engine.Name(), tt.want)
			}
		})
	}
}

func TestSelect_NoneAvailable(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder(t)
	recorder.FailOnCommand = "version"

	_, err := Select(t.Context(), EngineTypeAuto,
		WithExecCommand(recorder.CommandFunc()),
		WithLookPath(lookOnly("podman")),
	)
	if err == nil {
		t.Fatal("Select() expected error")
	}
	if !errors.Is(err, ErrNoBuilderAvailable) {
		t.Errorf("error %v does not wrap ErrNoBuilderAvailable", err)
	}
	if got := issue.IdOf(err); got != issue.NoBuilderAvailableId {
		t.Errorf("IdOf() = %d, want NoBuilderAvailableId", got)
	}
	if got := issue.ExitCodeOf(err); got != issue.ExitUnavailable {
		t.Errorf("ExitCodeOf() = %d, want %d", got, issue.ExitUnavailable)
	}

	var nba *NoBuilderAvailableError
	if !errors.As(err, &nba) {
		t.Fatalf("error %v is not a NoBuilderAvailableError", err)
	}
	want := []EngineAttempt{
		{Engine: EngineTypeBuildah, Reason: "not found in PATH"},
		{Engine: EngineTypePodman, Reason: "version probe failed"},
		{Engine: EngineTypeDocker, Reason: "not found in PATH"},
	}
	if diff := cmp.Diff(want, nba.Tried); diff != "" {
		t.Errorf("Tried mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	recorder := NewMockCommandRecorder(t)
	if _, err := Select(ctx, EngineTypeAuto, newMockEngineOptions(recorder)...); !errors.Is(err, context.Canceled) {
		t.Errorf("Select() error = %v, want context.Canceled", err)
	}
	recorder.AssertInvocationCount(t, 0)
}
