// SPDX-License-Identifier: MPL-2.0

package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xz-dev/distrobox-plus/internal/issue"
)

const (
	// DefaultTimeout bounds how long Acquire waits for a busy resource.
	DefaultTimeout = 30 * time.Minute

	// DefaultPollInterval is the delay between non-blocking lock attempts.
	DefaultPollInterval = 200 * time.Millisecond
)

var (
	// ErrLockTimeout is the sentinel wrapped by TimeoutError.
	ErrLockTimeout = errors.New("lock wait timed out")

	// ErrStaleLock is the sentinel wrapped by StaleError.
	ErrStaleLock = errors.New("stale lock could not be reclaimed")
)

type (
	// Locker hands out exclusive holds on named resources.
	Locker interface {
		// Acquire blocks until resource is held, ctx is done, or the
		// locker's timeout expires.
		Acquire(ctx context.Context, resource string) (Releaser, error)
	}

	// Releaser releases a hold obtained from a Locker.
	Releaser interface {
		Release() error
	}

	// PathFunc maps a resource name to its lock file path.
	PathFunc func(resource string) string

	// FileLocker is a Locker backed by flock on one file per resource.
	FileLocker struct {
		pathFor      PathFunc
		timeout      time.Duration
		pollInterval time.Duration
		isAlive      func(pid int) bool
		removeFile   func(path string) error
	}

	// Option configures a FileLocker.
	Option func(*FileLocker)

	// TimeoutError is returned when a live holder keeps the resource past
	// the timeout.
	TimeoutError struct {
		Resource string
		Path     string
		Holder   int
		Waited   time.Duration
	}

	// StaleError is returned when the recorded holder is dead but the lock
	// file could not be reclaimed.
	StaleError struct {
		Resource string
		Path     string
		Holder   int
		Cause    error
	}
)

// WithTimeout sets how long Acquire waits. Zero or negative means DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(l *FileLocker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithPollInterval sets the delay between lock attempts.
func WithPollInterval(d time.Duration) Option {
	return func(l *FileLocker) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithLivenessCheck replaces the process liveness probe.
func WithLivenessCheck(fn func(pid int) bool) Option {
	return func(l *FileLocker) {
		l.isAlive = fn
	}
}

// NewFileLocker creates a FileLocker that stores lock files where pathFor says.
func NewFileLocker(pathFor PathFunc, opts ...Option) *FileLocker {
	l := &FileLocker{
		pathFor:      pathFor,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		isAlive:      ProcessAlive,
		removeFile:   os.Remove,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Timeout returns the configured wait bound.
func (l *FileLocker) Timeout() time.Duration { return l.timeout }

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for lock on %s", e.Waited.Round(time.Second), e.Resource)
	if e.Holder > 0 {
		msg += fmt.Sprintf(" (held by pid %d)", e.Holder)
	}
	return msg
}

// Unwrap returns ErrLockTimeout for errors.Is() compatibility.
func (e *TimeoutError) Unwrap() error { return ErrLockTimeout }

func (e *StaleError) Error() string {
	msg := fmt.Sprintf("lock on %s is held by dead pid %d and could not be reclaimed", e.Resource, e.Holder)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns ErrStaleLock and the cause.
func (e *StaleError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrStaleLock}
	}
	return []error{ErrStaleLock, e.Cause}
}

// readHolder returns the PID recorded in the lock file, or 0.
func readHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	return nil
}

func timeoutError(cause *TimeoutError) error {
	return issue.NewErrorContext().
		WithIssue(issue.LockTimeoutId).
		WithOperation("acquire build lock").
		WithResource(cause.Resource).
		WithSuggestions(
			"Another distrobox-boost process is building this environment; wait for it to finish",
			"Raise lock_timeout in the settings file if builds legitimately take longer",
		).
		Wrap(cause).
		BuildError()
}

func staleError(cause *StaleError) error {
	return issue.NewErrorContext().
		WithIssue(issue.StaleLockId).
		WithOperation("reclaim build lock").
		WithResource(cause.Path).
		WithSuggestion("Remove the lock file by hand once no build is running: rm " + cause.Path).
		Wrap(cause).
		BuildError()
}
