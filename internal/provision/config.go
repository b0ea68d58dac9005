// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"io"
	"time"

	"github.com/xz-dev/distrobox-plus/internal/container"
	"github.com/xz-dev/distrobox-plus/internal/history"
)

type (
	// EngineSelector picks the builder for a build.
	EngineSelector func(ctx context.Context) (container.Engine, error)

	// EngineLookup returns a usable engine of the given type, or nil.
	EngineLookup func(t container.EngineType) container.Engine

	// Option configures a Provisioner.
	Option func(*Provisioner)
)

// WithPreferredEngine selects builders with container.Select and the given
// preference.
func WithPreferredEngine(preferred container.EngineType, opts ...container.BaseCLIEngineOption) Option {
	return func(p *Provisioner) {
		p.selectEngine = func(ctx context.Context) (container.Engine, error) {
			return container.Select(ctx, preferred, opts...)
		}
		p.engineByName = func(t container.EngineType) container.Engine {
			e, err := container.NewEngine(t, opts...)
			if err != nil || !e.Available() {
				return nil
			}
			return e
		}
	}
}

// WithEngineSelector replaces builder selection.
func WithEngineSelector(fn EngineSelector) Option {
	return func(p *Provisioner) {
		p.selectEngine = fn
	}
}

// WithEngineLookup replaces the lookup of the engine that built a record.
func WithEngineLookup(fn EngineLookup) Option {
	return func(p *Provisioner) {
		p.engineByName = fn
	}
}

// WithHistory records build attempts in r.
func WithHistory(r history.Recorder) Option {
	return func(p *Provisioner) {
		if r != nil {
			p.history = r
		}
	}
}

// WithOutput sets where build output is streamed. Both default to stderr so
// the stdout of the delegated command stays clean.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Provisioner) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithClock replaces time.Now for build timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		p.now = now
	}
}
