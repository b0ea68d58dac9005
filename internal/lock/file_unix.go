// SPDX-License-Identifier: MPL-2.0

//go:build unix

package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// fileLock is a held flock. The file stays on disk after release; an
// orphaned lock file is harmless because the kernel drops the flock with
// the last descriptor.
type fileLock struct {
	file *os.File
}

// ProcessAlive reports whether pid names a running process. EPERM means the
// process exists but belongs to someone else.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Acquire polls a non-blocking exclusive flock on the resource's lock file.
// When the wait exceeds the timeout it inspects the recorded holder: a live or
// unknown holder yields a LockTimeout issue, a dead one is reclaimed by
// unlinking the file and retrying once.
func (l *FileLocker) Acquire(ctx context.Context, resource string) (Releaser, error) {
	path := l.pathFor(resource)
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	start := time.Now()
	reclaimed := false
	for {
		held, err := tryLock(path)
		if err != nil {
			return nil, err
		}
		if held != nil {
			if reclaimed {
				slog.Warn("reclaimed stale build lock", "resource", resource, "path", path)
			}
			return held, nil
		}

		if waited := time.Since(start); waited >= l.timeout {
			holder := readHolder(path)
			if holder == 0 || l.isAlive(holder) {
				return nil, timeoutError(&TimeoutError{Resource: resource, Path: path, Holder: holder, Waited: waited})
			}
			if reclaimed {
				return nil, staleError(&StaleError{Resource: resource, Path: path, Holder: holder})
			}
			slog.Debug("lock holder is gone, unlinking lock file", "resource", resource, "holder", holder)
			if err := l.removeFile(path); err != nil && !os.IsNotExist(err) {
				return nil, staleError(&StaleError{Resource: resource, Path: path, Holder: holder, Cause: err})
			}
			reclaimed = true
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

// tryLock makes one non-blocking attempt. It returns (nil, nil) when the lock
// is busy, and also when the file was replaced underneath us between open and
// flock, so the caller simply tries again.
func tryLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, nil
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	// A reclaimer may have unlinked the path after we opened it; holding a
	// lock on an orphaned inode excludes nobody.
	same, err := sameFile(f, path)
	if err != nil || !same {
		f.Close()
		return nil, err
	}

	if err := writeHolder(f); err != nil {
		slog.Debug("failed to record lock holder", "path", path, "error", err)
	}
	return &fileLock{file: f}, nil
}

func sameFile(f *os.File, path string) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	current, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	return os.SameFile(held, current), nil
}

func writeHolder(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	return err
}

// Release unlocks the flock and closes the file descriptor. It is safe to call
// multiple times; subsequent calls are no-ops.
func (l *fileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// LOCK_UN before Close for explicitness; Close also releases the flock.
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	return nil
}
