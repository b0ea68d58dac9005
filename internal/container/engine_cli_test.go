// SPDX-License-Identifier: MPL-2.0

package container

import (
	"testing"
)

func TestEngines_ImageExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  EngineType
		args []string
	}{
		{EngineTypeBuildah, []string{"inspect", "--type", "image", "dev:latest"}},
		{EngineTypePodman, []string{"image", "exists", "dev:latest"}},
		{EngineTypeDocker, []string{"image", "inspect", "dev:latest"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()

			recorder := NewMockCommandRecorder(t)
			engine, err := NewEngine(tt.typ, newMockEngineOptions(recorder)...)
			if err != nil {
				t.Fatal(err)
			}

			exists, err := engine.ImageExists(t.Context(), "dev:latest")
			if err != nil || !exists {
				t.Fatalf("ImageExists() = %v, %v; want true, nil", exists, err)
			}
			recorder.AssertArgs(t, tt.args...)

			// A non-zero exit is a definite "no", not an error.
			recorder.ExitCode = 1
			exists, err = engine.ImageExists(t.Context(), "dev:latest")
			if err != nil || exists {
				t.Errorf("ImageExists() = %v, %v; want false, nil", exists, err)
			}
		})
	}
}

func TestEngines_ImageExists_CannotRun(t *testing.T) {
	t.Parallel()

	engine := NewPodmanEngine(WithBinaryPath("/nonexistent/podman"))
	if _, err := engine.ImageExists(t.Context(), "dev:latest"); err == nil {
		t.Error("ImageExists() expected an error when the binary cannot start")
	}
}

func TestEngines_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ    EngineType
		stdout string
		args   []string
		want   string
	}{
		{EngineTypeBuildah, "buildah version 1.33.7 (image-spec 1.1.0, runtime-spec 1.1.0)\n", []string{"--version"}, "1.33.7"},
		{EngineTypePodman, "5.2.1\n", []string{"version", "--format", "{{.Version}}"}, "5.2.1"},
		{EngineTypeDocker, "27.3.1\n", []string{"version", "--format", "{{.Server.Version}}"}, "27.3.1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			t.Parallel()

			recorder := NewMockCommandRecorder(t)
			recorder.Stdout = tt.stdout
			engine, err := NewEngine(tt.typ, newMockEngineOptions(recorder)...)
			if err != nil {
				t.Fatal(err)
			}

			got, err := engine.Version(t.Context())
			if err != nil {
				t.Fatalf("Version() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Version() = %q, want %q", got, tt.want)
			}
			recorder.AssertArgs(t, tt.args...)
		})
	}
}

func TestEngines_Available(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder(t)
	engine := NewBuildahEngine(newMockEngineOptions(recorder)...)
	if !engine.Available() {
		t.Error("Available() = false, want true")
	}
	recorder.AssertArgs(t, "version")

	recorder.ExitCode = 1
	if engine.Available() {
		t.Error("Available() = true after a failing version probe")
	}
}
