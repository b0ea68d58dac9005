// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/xz-dev/distrobox-plus/internal/issue"
)

// stderrTailSize is how much build stderr is kept for error reports.
const stderrTailSize = 64 * 1024

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves a binary name to an absolute path.
	LookPathFunc func(file string) (string, error)

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the common implementation for CLI-based image
	// builders. Buildah, Podman and Docker engines embed it. Build and
	// RemoveImage are shared; Available, Version and ImageExists stay on the
	// concrete types because their CLIs differ.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		buildVerb   string
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
	}

	// BaseCLIProvider is implemented by engines that embed BaseCLIEngine.
	BaseCLIProvider interface {
		BaseCLI() *BaseCLIEngine
	}

	// tailBuffer keeps the last max bytes written to it.
	tailBuffer struct {
		max int
		buf []byte
	}
)

// --- Option Functions ---

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithLookPath sets the function used to locate the engine binary.
func WithLookPath(fn LookPathFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.lookPath = fn
	}
}

// WithBinaryPath pins the engine binary, skipping the PATH lookup.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// --- Constructor ---

// NewBaseCLIEngine creates a base engine for the named binary. buildVerb is
// the subcommand that builds an image ("bud" for buildah, "build" otherwise).
// Unless WithBinaryPath is given, the binary is located with the configured
// lookup; a missing binary leaves BinaryPath empty.
func NewBaseCLIEngine(name, buildVerb string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        name,
		buildVerb:   buildVerb,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.binaryPath == "" {
		if path, err := e.lookPath(name); err == nil {
			e.binaryPath = path
		}
	}
	return e
}

// --- Accessor Methods ---

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the engine binary, or "" when not installed.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// BaseCLI returns the BaseCLIEngine itself.
func (e *BaseCLIEngine) BaseCLI() *BaseCLIEngine {
	return e
}

// --- Argument Builders ---

// BuildArgs constructs arguments for a build that reads the Containerfile
// from stdin and uses the working directory as context.
//
// Generated command: <binary> <verb> -t <tag> [--no-cache] -f - .
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{e.buildVerb, "-t", string(opts.Tag)}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	return append(args, "-f", "-", ".")
}

// RemoveImageArgs constructs arguments for an image remove command.
func (e *BaseCLIEngine) RemoveImageArgs(image ImageTag, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	return append(args, string(image))
}

// --- Command Execution ---

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// probeStatus runs a status query and separates "answered no" (non-zero
// exit) from "could not ask" (any other failure).
func (e *BaseCLIEngine) probeStatus(ctx context.Context, args ...string) (bool, error) {
	err := e.CreateCommand(ctx, args...).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
}

// --- Engine Methods ---

// Build runs the engine's build command with the Containerfile on stdin.
// Output streams to opts.Stdout/opts.Stderr; a failure returns a BuildFailed
// issue carrying the stderr tail.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	contextDir := opts.ContextDir
	if contextDir == "" {
		dir, err := os.MkdirTemp("", "distrobox-boost-context-*")
		if err != nil {
			return fmt.Errorf("create build context: %w", err)
		}
		defer os.RemoveAll(dir)
		contextDir = dir
	}

	tail := &tailBuffer{max: stderrTailSize}
	var stderr io.Writer = tail
	if opts.Stderr != nil {
		stderr = io.MultiWriter(opts.Stderr, tail)
	}

	cmd := e.CreateCommand(ctx, e.BuildArgs(opts)...)
	cmd.Dir = contextDir
	cmd.Stdin = strings.NewReader(opts.Containerfile)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		buildErr := &BuildError{
			Engine: e.name,
			Tag:    opts.Tag,
			Stderr: tail.String(),
			Cause:  err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			buildErr.ExitCode = exitErr.ExitCode()
		}
		return buildContainerError(e.name, buildErr)
	}
	return nil
}

// RemoveImage removes an image.
func (e *BaseCLIEngine) RemoveImage(ctx context.Context, image ImageTag, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveImageArgs(image, force)...)
}

// --- tailBuffer ---

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string { return string(t.buf) }

// --- Actionable Error Helpers ---

// buildContainerError creates an actionable error for build failures.
func buildContainerError(engine string, cause *BuildError) error {
	ctx := issue.NewErrorContext().
		WithIssue(issue.BuildFailedId).
		WithOperation("build image").
		WithResource(string(cause.Tag))

	if IsTransientError(cause) {
		ctx.WithSuggestion("The failure looks transient (network or storage); re-run the command")
	}
	ctx.WithSuggestion("Check that the base image exists (try: " + engine + " pull <image>)")
	ctx.WithSuggestion("Inspect the generated Containerfile with 'distrobox-boost build <name> --dry-run'")
	ctx.WithSuggestion("Run with --verbose to see the build output tail")

	return ctx.Wrap(cause).BuildError()
}
