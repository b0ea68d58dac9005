// SPDX-License-Identifier: MPL-2.0

package intercept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/xz-dev/distrobox-plus/internal/issue"
	"github.com/xz-dev/distrobox-plus/internal/lock"
)

const (
	// dirPattern names sandbox directories under the temp dir.
	dirPattern = "distrobox-boost-*"
	// ownerFile holds the PID of the process that created the sandbox.
	ownerFile = ".owner"
)

type (
	// Sandbox is a directory of dispatcher stubs plus the environment that
	// puts it first in PATH.
	Sandbox struct {
		dir    string
		exes   *Executables
		owned  bool
		env    []string
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// Option configures a Sandbox.
	Option func(*sandboxConfig)

	sandboxConfig struct {
		tempDir string
		env     []string
		stdin   io.Reader
		stdout  io.Writer
		stderr  io.Writer
	}
)

// WithTempDir creates the sandbox under dir instead of os.TempDir().
func WithTempDir(dir string) Option {
	return func(c *sandboxConfig) { c.tempDir = dir }
}

// WithEnv adds KEY=value pairs to the environment of commands run in the
// sandbox, replacing inherited values of the same keys.
func WithEnv(kv ...string) Option {
	return func(c *sandboxConfig) { c.env = append(c.env, kv...) }
}

// WithStdio sets the standard streams of commands run in the sandbox.
// The default is the streams of this process.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(c *sandboxConfig) {
		c.stdin, c.stdout, c.stderr = stdin, stdout, stderr
	}
}

// New creates a sandbox for commands. When exes.Sandbox names the sandbox of
// an enclosing invocation, that sandbox is reused and Close leaves it alone.
// Leftover sandboxes of dead processes are removed first.
func New(exes *Executables, commands []string, opts ...Option) (*Sandbox, error) {
	cfg := sandboxConfig{
		tempDir: os.TempDir(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sb := &Sandbox{exes: exes, env: cfg.env, stdin: cfg.stdin, stdout: cfg.stdout, stderr: cfg.stderr}
	if exes.Sandbox != "" {
		slog.Debug("reusing enclosing sandbox", "dir", exes.Sandbox)
		sb.dir = exes.Sandbox
		return sb, nil
	}

	Sweep(cfg.tempDir)

	realTool, _ := exes.LookPath(ToolName)
	stubs, err := Stubs(exes.Self, realTool, commands)
	if err != nil {
		return nil, setupError("generate stubs", "", err)
	}

	dir, err := os.MkdirTemp(cfg.tempDir, dirPattern)
	if err != nil {
		return nil, setupError("create sandbox directory", cfg.tempDir, err)
	}
	sb.dir = dir
	sb.owned = true

	if err := sb.populate(stubs); err != nil {
		_ = os.RemoveAll(dir)
		return nil, setupError("populate sandbox", dir, err)
	}

	slog.Debug("created sandbox", "dir", dir, "stubs", len(stubs))
	return sb, nil
}

func (s *Sandbox) populate(stubs []Stub) error {
	owner := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(filepath.Join(s.dir, ownerFile), owner, 0o600); err != nil {
		return err
	}
	for _, stub := range stubs {
		//nolint:gosec // stubs must be executable
		if err := os.WriteFile(filepath.Join(s.dir, stub.Name), []byte(stub.Script), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Dir returns the sandbox directory.
func (s *Sandbox) Dir() string { return s.dir }

// Nested reports whether this sandbox belongs to an enclosing invocation.
func (s *Sandbox) Nested() bool { return !s.owned }

// Environ returns base with PATH pointing into the sandbox, the variables
// nested invocations need to find their way back, and the WithEnv pairs.
func (s *Sandbox) Environ(base []string) []string {
	drop := []string{"PATH=", EnvOriginalPath + "=", EnvSelf + "=", EnvSandbox + "="}
	for _, kv := range s.env {
		if key, _, ok := strings.Cut(kv, "="); ok {
			drop = append(drop, key+"=")
		}
	}
	out := make([]string, 0, len(base)+4+len(s.env))
	for _, kv := range base {
		keep := true
		for _, prefix := range drop {
			if strings.HasPrefix(kv, prefix) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, kv)
		}
	}

	path := s.dir
	if s.exes.OriginalPath != "" {
		path += string(filepath.ListSeparator) + s.exes.OriginalPath
	}
	out = append(out,
		"PATH="+path,
		EnvOriginalPath+"="+s.exes.OriginalPath,
		EnvSelf+"="+s.exes.Self,
		EnvSandbox+"="+s.dir,
	)
	return append(out, s.env...)
}

// Run executes the real command with args inside the sandbox and returns
// its exit status. SIGTERM and SIGHUP received meanwhile are forwarded to
// the child. SIGINT is not: the child is in the same foreground process
// group and gets it from the terminal. Once started, the child is always
// waited for, even when ctx is canceled.
func (s *Sandbox) Run(ctx context.Context, command string, args []string) (int, error) {
	return run(ctx, s.exes, command, args, s.Environ(os.Environ()), s.stdin, s.stdout, s.stderr)
}

// Passthrough runs the real command with args outside of any sandbox, with
// the environment and standard streams of this process. Signals are handled
// as in Sandbox.Run.
func Passthrough(ctx context.Context, exes *Executables, command string, args []string) (int, error) {
	return run(ctx, exes, command, args, os.Environ(), os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, exes *Executables, command string, args, env []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, err := exes.Resolve(command)
	if err != nil {
		return 0, err
	}

	argv := target.Argv(args)
	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec,noctx // the child outlives ctx on purpose
	cmd.Env = env
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	slog.Debug("running real command", "command", command, "path", target.Path, "args", args)

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", target.Path, err)
	}

	done := make(chan struct{})
	go forwardSignals(cmd.Process, sigCh, done)
	err = cmd.Wait()
	close(done)

	return exitStatus(err)
}

// Close removes the sandbox directory. A reused enclosing sandbox is left
// for its owner.
func (s *Sandbox) Close() error {
	if !s.owned || s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}

func forwardSignals(p *os.Process, sigCh <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-sigCh:
			if sig == os.Interrupt {
				continue
			}
			slog.Debug("forwarding signal", "signal", sig, "pid", p.Pid)
			_ = p.Signal(sig)
		case <-done:
			return
		}
	}
}

// exitStatus converts a Wait error into an exit status. A child killed by a
// signal reports 128+signal, the way shells do.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

// Sweep removes sandbox directories under tempDir whose owner process is no
// longer alive. Directories without an owner file are not sandboxes and are
// left alone.
func Sweep(tempDir string) {
	matches, err := filepath.Glob(filepath.Join(tempDir, dirPattern))
	if err != nil {
		return
	}
	for _, dir := range matches {
		data, err := os.ReadFile(filepath.Join(dir, ownerFile))
		if err != nil {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil || pid <= 0 || lock.ProcessAlive(pid) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			slog.Debug("failed to remove leftover sandbox", "dir", dir, "error", err)
			continue
		}
		slog.Debug("removed leftover sandbox", "dir", dir, "owner", pid)
	}
}

func setupError(op, resource string, cause error) error {
	return issue.NewErrorContext().
		WithIssue(issue.InterceptionSetupFailedId).
		WithOperation(op).
		WithResource(resource).
		WithSuggestion("Check that the temporary directory is writable (TMPDIR)").
		Wrap(cause).
		BuildError()
}
