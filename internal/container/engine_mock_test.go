// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

type (
	// MockCommandRecorder captures arguments passed to exec.Command for verification.
	// It uses the TestHelperProcess pattern to simulate command execution.
	MockCommandRecorder struct {
		mu sync.Mutex
		// Invocations records each call to the mock exec.Command
		Invocations []MockInvocation
		// ExitCode is the exit code to return (0 = success)
		ExitCode int
		// Stdout is the output to write to stdout
		Stdout string
		// Stderr is the output to write to stderr
		Stderr string
		// FailOnCommand can be set to a subcommand that should fail
		FailOnCommand string
		// FailExitCode is the exit code used for FailOnCommand (default 1)
		FailExitCode int

		stdinDir string
	}

	// MockInvocation represents a single invocation of exec.Command.
	MockInvocation struct {
		// Name is the command name (e.g., "/usr/bin/buildah")
		Name string
		// Args are the arguments passed to the command
		Args []string
		// Cmd is the command handed back to the engine, so tests can
		// inspect fields the engine set after creation (Dir).
		Cmd *exec.Cmd
		// StdinFile receives whatever the engine wrote to stdin.
		StdinFile string
	}
)

// NewMockCommandRecorder creates a new recorder with default settings (success, no output).
func NewMockCommandRecorder(t *testing.T) *MockCommandRecorder {
	t.Helper()
	return &MockCommandRecorder{
		Invocations: make([]MockInvocation, 0),
		stdinDir:    t.TempDir(),
	}
}

// CommandFunc returns an ExecCommandFunc that records invocations and
// returns a command that runs TestHelperProcess.
func (m *MockCommandRecorder) CommandFunc() ExecCommandFunc {
	return func(_ context.Context, name string, args ...string) *exec.Cmd {
		m.mu.Lock()
		defer m.mu.Unlock()

		stdinFile := filepath.Join(m.stdinDir, fmt.Sprintf("stdin-%d", len(m.Invocations)))

		// Build a helper process command that will return our configured output
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.Command(os.Args[0], cs...) //nolint:noctx // exec.Command used intentionally for test helper
		exitCode := m.ExitCode
		if m.FailOnCommand != "" && len(args) > 0 && args[0] == m.FailOnCommand {
			exitCode = m.FailExitCode
			if exitCode == 0 {
				exitCode = 1
			}
		}
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", exitCode),
			fmt.Sprintf("GO_HELPER_STDOUT=%s", m.Stdout),
			fmt.Sprintf("GO_HELPER_STDERR=%s", m.Stderr),
			"GO_HELPER_STDIN_FILE=" + stdinFile,
		}

		m.Invocations = append(m.Invocations, MockInvocation{
			Name:      name,
			Args:      args,
			Cmd:       cmd,
			StdinFile: stdinFile,
		})
		return cmd
	}
}

// LastInvocation returns the most recent invocation, or nil if none.
func (m *MockCommandRecorder) LastInvocation() *MockInvocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Invocations) == 0 {
		return nil
	}
	return &m.Invocations[len(m.Invocations)-1]
}

// LastArgs returns the arguments from the most recent invocation.
func (m *MockCommandRecorder) LastArgs() []string {
	if inv := m.LastInvocation(); inv != nil {
		return inv.Args
	}
	return nil
}

// LastStdin returns what the most recent invocation read from stdin.
func (m *MockCommandRecorder) LastStdin(t *testing.T) string {
	t.Helper()
	inv := m.LastInvocation()
	if inv == nil {
		t.Fatal("no commands were invoked")
	}
	data, err := os.ReadFile(inv.StdinFile)
	if err != nil {
		t.Fatalf("reading captured stdin: %v", err)
	}
	return string(data)
}

// AssertCommandName verifies the last command name matches.
func (m *MockCommandRecorder) AssertCommandName(t *testing.T, expected string) {
	t.Helper()
	if inv := m.LastInvocation(); inv == nil {
		t.Errorf("expected command %q but no commands were invoked", expected)
	} else if inv.Name != expected {
		t.Errorf("expected command %q, got %q", expected, inv.Name)
	}
}

// AssertArgs verifies the last invocation's arguments exactly.
func (m *MockCommandRecorder) AssertArgs(t *testing.T, expected ...string) {
	t.Helper()
	if got := m.LastArgs(); !slices.Equal(got, expected) {
		t.Errorf("expected args %q, got %q", expected, got)
	}
}

// AssertArgsContain verifies that the last invocation args contain the expected string.
func (m *MockCommandRecorder) AssertArgsContain(t *testing.T, expected string) {
	t.Helper()
	args := m.LastArgs()
	argsStr := strings.Join(args, " ")
	if !strings.Contains(argsStr, expected) {
		t.Errorf("expected args to contain %q, got: %v", expected, args)
	}
}

// AssertArgsNotContain verifies that the last invocation args do NOT contain the expected string.
func (m *MockCommandRecorder) AssertArgsNotContain(t *testing.T, unexpected string) {
	t.Helper()
	args := m.LastArgs()
	argsStr := strings.Join(args, " ")
	if strings.Contains(argsStr, unexpected) {
		t.Errorf("expected args to NOT contain %q, got: %v", unexpected, args)
	}
}

// AssertFirstArg verifies the first argument (subcommand) matches.
func (m *MockCommandRecorder) AssertFirstArg(t *testing.T, expected string) {
	t.Helper()
	args := m.LastArgs()
	if len(args) == 0 {
		t.Errorf("expected first arg %q but args are empty", expected)
		return
	}
	if args[0] != expected {
		t.Errorf("expected first arg %q, got %q", expected, args[0])
	}
}

// AssertInvocationCount verifies the number of command invocations.
func (m *MockCommandRecorder) AssertInvocationCount(t *testing.T, expected int) {
	t.Helper()
	m.mu.Lock()
	got := len(m.Invocations)
	m.mu.Unlock()
	if got != expected {
		t.Errorf("expected %d invocations, got %d", expected, got)
	}
}

// HasArgPair checks if the last invocation contains a flag-value pair (e.g., "-t", "myimage").
func (m *MockCommandRecorder) HasArgPair(flag, value string) bool {
	args := m.LastArgs()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

// Reset clears all recorded invocations.
func (m *MockCommandRecorder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invocations = m.Invocations[:0]
}

// TestHelperProcess is used by the mock to simulate command execution.
// It reads configuration from environment variables and outputs accordingly.
// This function should not be called directly - it is invoked by the mock.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	// Capture stdin for the test to inspect
	if path := os.Getenv("GO_HELPER_STDIN_FILE"); path != "" {
		data, _ := io.ReadAll(os.Stdin)
		_ = os.WriteFile(path, data, 0o600)
	}

	// Write configured stdout
	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}

	// Write configured stderr
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	// Exit with configured code
	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}

	os.Exit(exitCode)
}

// newMockEngineOptions returns engine options that route every command to
// the recorder and pin the binary path to /usr/bin/<name>.
func newMockEngineOptions(recorder *MockCommandRecorder) []BaseCLIEngineOption {
	return []BaseCLIEngineOption{
		WithExecCommand(recorder.CommandFunc()),
		WithLookPath(func(file string) (string, error) { return "/usr/bin/" + file, nil }),
	}
}

// TestMockCommandRecorder_Basic verifies the mock recorder works correctly.
func TestMockCommandRecorder_Basic(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder(t)
	cmd := recorder.CommandFunc()(t.Context(), "buildah", "bud", "-t", "test:latest", ".")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recorder.AssertInvocationCount(t, 1)
	recorder.AssertCommandName(t, "buildah")
	recorder.AssertFirstArg(t, "bud")
	if !recorder.HasArgPair("-t", "test:latest") {
		t.Errorf("expected -t test:latest in %v", recorder.LastArgs())
	}
}

// TestMockCommandRecorder_Output verifies the mock can produce output.
func TestMockCommandRecorder_Output(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder(t)
	recorder.Stdout = "version 1.0.0"

	cmd := recorder.CommandFunc()(t.Context(), "podman", "version")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout.String() != "version 1.0.0" {
		t.Errorf("expected stdout 'version 1.0.0', got %q", stdout.String())
	}
}

// TestMockCommandRecorder_ExitCode verifies the mock can return exit codes.
func TestMockCommandRecorder_ExitCode(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder(t)
	recorder.ExitCode = 1
	recorder.Stderr = "build failed"

	if err := recorder.CommandFunc()(t.Context(), "docker", "build").Run(); err == nil {
		t.Fatal("expected error for non-zero exit code")
	}
}
