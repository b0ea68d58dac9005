// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xz-dev/distrobox-plus/internal/issue"
)

const (
	EngineTypeBuildah EngineType = "buildah"
	EngineTypePodman  EngineType = "podman"
	EngineTypeDocker  EngineType = "docker"

	// EngineTypeAuto selects the first available engine in priority order.
	EngineTypeAuto EngineType = "auto"
)

var (
	// ErrNoBuilderAvailable is the sentinel wrapped by NoBuilderAvailableError.
	ErrNoBuilderAvailable = errors.New("no image builder available")

	// ErrUnknownEngine is returned by NewEngine for an unrecognized engine type.
	ErrUnknownEngine = errors.New("unknown container engine")

	// ErrBuildFailed is the sentinel wrapped by BuildError.
	ErrBuildFailed = errors.New("image build failed")
)

type (
	// Engine defines the image builder operations.
	Engine interface {
		// Name returns the engine name (buildah, podman or docker).
		Name() string
		// Available reports whether the engine binary exists and responds.
		Available() bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// Build builds an image from the Containerfile text in opts.
		Build(ctx context.Context, opts BuildOptions) error
		// ImageExists reports whether the local store holds the tag.
		ImageExists(ctx context.Context, image ImageTag) (bool, error)
		// RemoveImage removes an image from the local store.
		RemoveImage(ctx context.Context, image ImageTag, force bool) error
	}

	// EngineType identifies an image builder.
	EngineType string

	// ImageTag is a local image reference such as "mybox:latest".
	ImageTag string

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// Containerfile is the full Containerfile text, passed on stdin.
		Containerfile string
		// Tag is the image tag to produce.
		Tag ImageTag
		// ContextDir is the build context. Empty means a fresh empty
		// temporary directory that is removed after the build.
		ContextDir string
		// NoCache disables the layer cache.
		NoCache bool
		// Stdout is where build output is streamed.
		Stdout io.Writer
		// Stderr is where build errors are streamed. The tail is also
		// captured into BuildError.
		Stderr io.Writer
	}

	// EngineAttempt records why one engine was rejected during selection.
	EngineAttempt struct {
		Engine EngineType
		Reason string
	}

	// NoBuilderAvailableError lists every engine Select probed.
	NoBuilderAvailableError struct {
		Tried []EngineAttempt
	}

	// BuildError describes a failed build invocation.
	BuildError struct {
		Engine   string
		Tag      ImageTag
		ExitCode int
		// Stderr holds the last part of the build's standard error.
		Stderr string
		Cause  error
	}
)

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// String returns the string representation of the ImageTag.
func (t ImageTag) String() string { return string(t) }

// ImageTagFor returns the deterministic tag used for an environment name.
func ImageTagFor(name string) ImageTag {
	return ImageTag(strings.ToLower(name) + ":latest")
}

// Priority returns the engine probe order used by Select.
func Priority() []EngineType {
	return []EngineType{EngineTypeBuildah, EngineTypePodman, EngineTypeDocker}
}

func (e *NoBuilderAvailableError) Error() string {
	parts := make([]string, 0, len(e.Tried))
	for _, a := range e.Tried {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Engine, a.Reason))
	}
	return "no image builder available, tried: " + strings.Join(parts, ", ")
}

// Unwrap returns ErrNoBuilderAvailable for errors.Is() compatibility.
func (e *NoBuilderAvailableError) Unwrap() error { return ErrNoBuilderAvailable }

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s build of %s failed", e.Engine, e.Tag)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *BuildError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrBuildFailed}
	}
	return []error{ErrBuildFailed, e.Cause}
}

// NewEngine creates the engine for t without probing it.
func NewEngine(t EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	switch t {
	case EngineTypeBuildah:
		return NewBuildahEngine(opts...), nil
	case EngineTypePodman:
		return NewPodmanEngine(opts...), nil
	case EngineTypeDocker:
		return NewDockerEngine(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, t)
	}
}

// Select returns the first available engine. A preferred engine other than
// EngineTypeAuto is tried first; when it is unavailable the remaining
// engines are tried in priority order.
func Select(ctx context.Context, preferred EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	order := Priority()
	if preferred != "" && preferred != EngineTypeAuto {
		rest := make([]EngineType, 0, len(order))
		for _, t := range order {
			if t != preferred {
				rest = append(rest, t)
			}
		}
		order = append([]EngineType{preferred}, rest...)
	}

	var tried []EngineAttempt
	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		engine, err := NewEngine(t, opts...)
		if err != nil {
			return nil, err
		}
		reason := probe(engine)
		if reason == "" {
			if t != order[0] {
				slog.Debug("preferred builder unavailable, falling back", "preferred", order[0], "selected", t)
			}
			return engine, nil
		}
		tried = append(tried, EngineAttempt{Engine: t, Reason: reason})
	}

	cause := &NoBuilderAvailableError{Tried: tried}
	return nil, issue.NewErrorContext().
		WithIssue(issue.NoBuilderAvailableId).
		WithOperation("select image builder").
		WithSuggestions(
			"Install buildah, podman or docker",
			"Check that the engine works for your user (try: podman version)",
		).
		Wrap(cause).
		BuildError()
}

// probe returns an empty string when engine is usable, otherwise the reason
// it was rejected.
func probe(engine Engine) string {
	if b, ok := engine.(BaseCLIProvider); ok && b.BaseCLI().BinaryPath() == "" {
		return "not found in PATH"
	}
	if !engine.Available() {
		return "version probe failed"
	}
	return ""
}
