// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Without flock the locker only serializes callers inside this process.
var (
	heldMu sync.Mutex
	held   = map[string]chan struct{}{}
)

type chanLock struct {
	once sync.Once
	path string
	ch   chan struct{}
}

// ProcessAlive cannot be answered without unix signals; every pid is
// treated as alive so nothing is reclaimed.
func ProcessAlive(pid int) bool { return pid > 0 }

// Acquire waits for the in-process hold on the resource's lock path.
func (l *FileLocker) Acquire(ctx context.Context, resource string) (Releaser, error) {
	path := l.pathFor(resource)
	slog.Debug("flock unavailable on this platform, using in-process lock", "path", path)

	start := time.Now()
	for {
		heldMu.Lock()
		ch, busy := held[path]
		if !busy {
			ch = make(chan struct{})
			held[path] = ch
			heldMu.Unlock()
			return &chanLock{path: path, ch: ch}, nil
		}
		heldMu.Unlock()

		remaining := l.timeout - time.Since(start)
		if remaining <= 0 {
			return nil, timeoutError(&TimeoutError{Resource: resource, Path: path, Waited: time.Since(start)})
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		case <-time.After(remaining):
		}
	}
}

func (c *chanLock) Release() error {
	c.once.Do(func() {
		heldMu.Lock()
		delete(held, c.path)
		heldMu.Unlock()
		close(c.ch)
	})
	return nil
}
