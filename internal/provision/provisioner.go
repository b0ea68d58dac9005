// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/xz-dev/distrobox-plus/internal/container"
	"github.com/xz-dev/distrobox-plus/internal/history"
	"github.com/xz-dev/distrobox-plus/internal/lock"
	"github.com/xz-dev/distrobox-plus/internal/profile"
	"github.com/xz-dev/distrobox-plus/internal/recipe"
	"github.com/xz-dev/distrobox-plus/internal/store"
)

type (
	// Provisioner makes sure an environment's image is built and current.
	Provisioner struct {
		store        *store.Store
		locker       lock.Locker
		selectEngine EngineSelector
		engineByName EngineLookup
		history      history.Recorder
		stdout       io.Writer
		stderr       io.Writer
		now          func() time.Time
	}

	// EnsureOptions modifies a single EnsureBuilt call.
	EnsureOptions struct {
		// Force rebuilds even when the record is valid.
		Force bool
		// DryRun generates the recipe without locking or building.
		DryRun bool
	}

	// Result describes what EnsureBuilt did.
	Result struct {
		// Image is the tag to create the environment from.
		Image container.ImageTag
		// Fingerprint is the current BuildFingerprint of the environment.
		Fingerprint recipe.Fingerprint
		// Builder is the engine that built or validated the image. Empty on
		// a dry run.
		Builder string
		// Built is true when this call ran a build.
		Built bool
		// Reason explains why a build ran or was skipped.
		Reason string
		// ArtifactPath is where the Containerfile was saved. Empty when no
		// build ran.
		ArtifactPath string
		// Artifact is the generated Containerfile. Set on builds and dry runs.
		Artifact string
		// Findings are lint problems in the generated steps.
		Findings []recipe.Finding
	}

	// Check is the current staleness decision of an environment.
	Check struct {
		Environment    *profile.Environment
		Validity       store.Validity
		Builder        string
		BuilderVersion string
	}
)

// New creates a Provisioner. Without options, builders are selected
// automatically and history is not recorded.
func New(st *store.Store, locker lock.Locker, opts ...Option) *Provisioner {
	p := &Provisioner{
		store:   st,
		locker:  locker,
		history: history.Nop{},
		stdout:  os.Stderr,
		stderr:  os.Stderr,
		now:     time.Now,
	}
	WithPreferredEngine(container.EngineTypeAuto)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check loads name and applies the staleness rule without building.
func (p *Provisioner) Check(ctx context.Context, name profile.Name) (*Check, error) {
	env, err := p.store.Load(name)
	if err != nil {
		return nil, err
	}
	engine, err := p.selectEngine(ctx)
	if err != nil {
		return nil, err
	}
	v, checker, err := p.validate(ctx, name, env, engine)
	if err != nil {
		return nil, err
	}
	c := &Check{Environment: env, Validity: v, Builder: checker.Name()}
	if c.BuilderVersion, err = checker.Version(ctx); err != nil {
		slog.Debug("builder version unavailable", "builder", c.Builder, "error", err)
	}
	return c, nil
}

// EnsureBuilt returns the image of name, building it first when there is no
// valid record. A build failure is returned as a BuildFailed issue and never
// leaves a record behind.
func (p *Provisioner) EnsureBuilt(ctx context.Context, name profile.Name, opts EnsureOptions) (*Result, error) {
	env, err := p.store.Load(name)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Image:       container.ImageTagFor(string(name)),
		Fingerprint: p.store.FingerprintOf(env),
	}

	if opts.DryRun {
		res.Artifact, res.Findings = p.generate(env)
		res.Reason = "dry run"
		return res, nil
	}

	engine, err := p.selectEngine(ctx)
	if err != nil {
		return nil, err
	}

	if !opts.Force {
		done, err := p.reuse(ctx, name, env, engine, res)
		if err != nil {
			return nil, err
		}
		if done {
			return res, nil
		}
	}

	rel, err := p.locker.Acquire(ctx, string(name))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rel.Release(); err != nil {
			slog.Debug("failed to release build lock", "name", name, "error", err)
		}
	}()

	// Another process may have finished the build while we waited.
	if opts.Force {
		res.Reason = "forced rebuild"
	} else {
		done, err := p.reuse(ctx, name, env, engine, res)
		if err != nil {
			return nil, err
		}
		if done {
			return res, nil
		}
	}

	if err := p.build(ctx, name, env, engine, res); err != nil {
		return nil, err
	}
	return res, nil
}

// reuse fills res and reports true when the current record is valid.
func (p *Provisioner) reuse(ctx context.Context, name profile.Name, env *profile.Environment, engine container.Engine, res *Result) (bool, error) {
	v, checker, err := p.validate(ctx, name, env, engine)
	if err != nil {
		return false, err
	}
	res.Reason = v.Reason
	if !v.Valid {
		return false, nil
	}
	res.Builder = checker.Name()
	slog.Debug("image is up to date", "name", name, "image", res.Image, "fingerprint", res.Fingerprint.Short())
	return true, nil
}

// validate runs the staleness rule, asking the engine that built the record
// when it is still usable and the selected engine otherwise.
func (p *Provisioner) validate(ctx context.Context, name profile.Name, env *profile.Environment, engine container.Engine) (store.Validity, container.Engine, error) {
	checker := engine
	rec, err := p.store.LastBuilt(name)
	if err != nil {
		return store.Validity{}, nil, err
	}
	if rec != nil && rec.Builder != "" && rec.Builder != engine.Name() && p.engineByName != nil {
		if builtBy := p.engineByName(container.EngineType(rec.Builder)); builtBy != nil {
			checker = builtBy
		}
	}
	v, err := p.store.Validate(ctx, name, env, checker)
	return v, checker, err
}

func (p *Provisioner) generate(env *profile.Environment) (string, []recipe.Finding) {
	steps := recipe.Generate(store.InputsOf(env), p.store.RecipeOptions())
	return recipe.Assemble(env.Image, steps), recipe.Lint(steps)
}

// build runs the locked part of EnsureBuilt: forget, generate, save, build,
// record.
func (p *Provisioner) build(ctx context.Context, name profile.Name, env *profile.Environment, engine container.Engine, res *Result) error {
	if err := p.store.ForgetBuild(name); err != nil {
		return err
	}

	res.Artifact, res.Findings = p.generate(env)
	for _, f := range res.Findings {
		slog.Warn("generated recipe does not parse", "name", name, "finding", f.String())
	}

	path, err := p.store.SaveArtifact(name, res.Artifact)
	if err != nil {
		return err
	}
	res.ArtifactPath = path
	res.Builder = engine.Name()

	slog.Info("building image", "name", name, "image", res.Image, "builder", res.Builder, "reason", res.Reason)

	attempt, herr := p.history.Begin(ctx, history.Attempt{
		Name:        string(name),
		Fingerprint: res.Fingerprint.String(),
		Tag:         res.Image.String(),
		Builder:     res.Builder,
	})
	if herr != nil {
		slog.Warn("failed to record build attempt", "error", herr)
	}

	start := p.now()
	if err := engine.Build(ctx, container.BuildOptions{
		Containerfile: res.Artifact,
		Tag:           res.Image,
		Stdout:        p.stdout,
		Stderr:        p.stderr,
	}); err != nil {
		p.finish(attempt, herr, history.StatusFailed, err.Error())
		return err
	}

	rec := store.Record{
		Fingerprint: res.Fingerprint,
		Tag:         res.Image.String(),
		Builder:     res.Builder,
		BaseImage:   env.Image,
		BuiltAt:     p.now().UTC(),
	}
	if err := p.store.RecordBuild(name, rec); err != nil {
		p.finish(attempt, herr, history.StatusFailed, err.Error())
		return fmt.Errorf("image %s was built but not recorded: %w", res.Image, err)
	}
	p.finish(attempt, herr, history.StatusSucceeded, "")

	res.Built = true
	slog.Info("image built", "name", name, "image", res.Image, "duration", p.now().Sub(start).Round(time.Millisecond))
	return nil
}

// finish closes a history attempt. It uses a fresh context so a canceled
// build is still recorded as failed.
func (p *Provisioner) finish(id int64, beginErr error, status history.Status, msg string) {
	if beginErr != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.history.Finish(ctx, id, status, msg); err != nil {
		slog.Warn("failed to record build outcome", "error", err)
	}
}
