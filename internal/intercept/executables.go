// SPDX-License-Identifier: MPL-2.0

package intercept

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xz-dev/distrobox-plus/internal/issue"
)

// Environment variables passed from a sandboxed parent to nested invocations.
const (
	// EnvSelf is the absolute path of the distrobox-boost binary.
	EnvSelf = "DISTROBOX_BOOST_SELF"
	// EnvOriginalPath is the search path before any sandbox was prepended.
	EnvOriginalPath = "DISTROBOX_BOOST_ORIGINAL_PATH"
	// EnvSandbox is the directory of the sandbox a process runs in.
	EnvSandbox = "DISTROBOX_BOOST_SANDBOX"
)

// ToolName is the real orchestration tool. Its subcommands live in
// executables named ToolName-<command>.
const ToolName = "distrobox"

// ErrCommandNotFound is returned when no real executable serves a command.
var ErrCommandNotFound = errors.New("command not found")

type (
	// Executables is the process-wide view of where things live, resolved
	// once at startup and passed explicitly to everything that spawns
	// processes.
	Executables struct {
		// Self is the absolute path of this binary, used in stubs.
		Self string
		// OriginalPath is the search path without any sandbox directory.
		OriginalPath string
		// Sandbox is the enclosing sandbox directory when this process was
		// started from a stub, else empty.
		Sandbox string
	}

	// Target is a resolved real command.
	Target struct {
		// Path is the absolute path of the executable.
		Path string
		// Prefix goes before the user arguments ("create" when the command
		// is reached through the distrobox front end).
		Prefix []string
	}
)

// ResolveExecutables inspects the environment through getenv and returns the
// Executables of this process. argv0 is os.Args[0].
func ResolveExecutables(argv0 string, getenv func(string) string) (*Executables, error) {
	exes := &Executables{
		OriginalPath: getenv(EnvOriginalPath),
		Sandbox:      getenv(EnvSandbox),
	}
	if exes.OriginalPath == "" {
		exes.OriginalPath = getenv("PATH")
	}

	self, err := resolveSelf(argv0, getenv(EnvSelf), exes.OriginalPath)
	if err != nil {
		return nil, err
	}
	exes.Self = self

	if exes.Sandbox != "" {
		if info, err := os.Stat(exes.Sandbox); err != nil || !info.IsDir() {
			exes.Sandbox = ""
		}
	}
	return exes, nil
}

func resolveSelf(argv0, fromEnv, searchPath string) (string, error) {
	if fromEnv != "" && filepath.IsAbs(fromEnv) {
		return fromEnv, nil
	}
	if strings.Contains(argv0, string(filepath.Separator)) {
		if abs, err := filepath.Abs(argv0); err == nil {
			return abs, nil
		}
	} else if argv0 != "" {
		if path, ok := lookPath(argv0, searchPath, ""); ok {
			return path, nil
		}
	}
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate own executable: %w", err)
	}
	return self, nil
}

// LookPath finds file in OriginalPath. Entries pointing at this binary are
// skipped so a command never resolves to its own interceptor.
func (e *Executables) LookPath(file string) (string, bool) {
	return lookPath(file, e.OriginalPath, e.Self)
}

// Resolve returns the real executable that serves command: distrobox-<command>
// when present, otherwise the distrobox front end with command as the first
// argument.
func (e *Executables) Resolve(command string) (*Target, error) {
	if path, ok := e.LookPath(ToolName + "-" + command); ok {
		return &Target{Path: path}, nil
	}
	if path, ok := e.LookPath(ToolName); ok {
		return &Target{Path: path, Prefix: []string{command}}, nil
	}

	return nil, issue.NewErrorContext().
		WithIssue(issue.CommandNotFoundId).
		WithOperation("find the real "+ToolName+" command").
		WithResource(ToolName+"-"+command).
		WithSuggestions(
			"Install distrobox, or make sure it is in PATH",
			"Search path used: "+e.OriginalPath,
		).
		Wrap(fmt.Errorf("%w: neither %s-%s nor %s in PATH", ErrCommandNotFound, ToolName, command, ToolName)).
		BuildError()
}

// Argv returns the full argument vector for running t with args.
func (t *Target) Argv(args []string) []string {
	out := make([]string, 0, 1+len(t.Prefix)+len(args))
	out = append(out, t.Path)
	out = append(out, t.Prefix...)
	return append(out, args...)
}

// lookPath searches dirs in order for an executable regular file named
// file. Relative and empty PATH entries are ignored. A candidate that
// resolves to skip is passed over.
func lookPath(file, searchPath, skip string) (string, bool) {
	skipResolved := ""
	if skip != "" {
		if r, err := filepath.EvalSymlinks(skip); err == nil {
			skipResolved = r
		}
	}

	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" || !filepath.IsAbs(dir) {
			continue
		}
		candidate := filepath.Join(dir, file)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
			continue
		}
		if skipResolved != "" {
			if r, err := filepath.EvalSymlinks(candidate); err == nil && r == skipResolved {
				continue
			}
		}
		return candidate, true
	}
	return "", false
}
