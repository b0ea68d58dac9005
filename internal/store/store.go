// SPDX-License-Identifier: MPL-2.0

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/xz-dev/distrobox-plus/internal/config"
	"github.com/xz-dev/distrobox-plus/internal/container"
	"github.com/xz-dev/distrobox-plus/internal/issue"
	"github.com/xz-dev/distrobox-plus/internal/profile"
	"github.com/xz-dev/distrobox-plus/internal/recipe"
)

// Staleness reasons reported by Validate.
const (
	ReasonNoRecord           = "no build record"
	ReasonFingerprintChanged = "configuration changed since last build"
	ReasonImageMissing       = "built image is missing"
	ReasonUpToDate           = "up to date"
)

var (
	// ErrNotFound is wrapped when an environment has no stored configuration.
	ErrNotFound = errors.New("environment not found")

	// ErrExists is returned by Import when the environment exists and
	// overwriting was not requested.
	ErrExists = errors.New("environment already exists")
)

type (
	// Store reads and writes environment state under the resolved directories.
	Store struct {
		dirs config.Dirs
		opts recipe.Options
	}

	// ImageChecker answers whether a tag exists in local image storage.
	ImageChecker interface {
		ImageExists(ctx context.Context, image container.ImageTag) (bool, error)
	}

	// Validity is the staleness decision for one environment.
	Validity struct {
		Valid       bool
		Reason      string
		Fingerprint recipe.Fingerprint
		Record      *Record
	}

	// Entry is one stored environment in a listing.
	Entry struct {
		Name       profile.Name
		ConfigPath string
	}
)

// New creates a Store. opts are the recipe options that participate in the
// fingerprint.
func New(dirs config.Dirs, opts recipe.Options) *Store {
	return &Store{dirs: dirs, opts: opts}
}

// Dirs returns the directories the store works in.
func (s *Store) Dirs() config.Dirs { return s.dirs }

// ConfigPath returns the configuration file of name.
func (s *Store) ConfigPath(name profile.Name) string {
	return filepath.Join(s.dirs.EnvironmentConfigDir(string(name)), config.EnvironmentFileName)
}

// ArtifactPath returns where the generated Containerfile of name is kept.
func (s *Store) ArtifactPath(name profile.Name) string {
	return filepath.Join(s.dirs.EnvironmentCacheDir(string(name)), config.ArtifactFileName)
}

// RecordPath returns the BuiltImageRecord file of name.
func (s *Store) RecordPath(name profile.Name) string {
	return filepath.Join(s.dirs.EnvironmentCacheDir(string(name)), config.RecordFileName)
}

// LockPath returns the build lock file of name. It has the signature of
// lock.PathFunc once converted.
func (s *Store) LockPath(name string) string {
	return filepath.Join(s.dirs.EnvironmentCacheDir(name), config.LockFileName)
}

// Has reports whether name has a stored configuration.
func (s *Store) Has(name profile.Name) bool {
	if name.Validate() != nil {
		return false
	}
	info, err := os.Stat(s.ConfigPath(name))
	return err == nil && info.Mode().IsRegular()
}

// Load reads and parses the stored configuration of name.
func (s *Store) Load(name profile.Name) (*profile.Environment, error) {
	if err := name.Validate(); err != nil {
		return nil, invalidProfileError(string(name), err)
	}

	path := s.ConfigPath(name)
	env, err := profile.ParseFile(path, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, issue.NewErrorContext().
				WithIssue(issue.ConfigNotFoundId).
				WithOperation("load environment").
				WithResource(string(name)).
				WithSuggestion("Import a configuration: distrobox-boost profile import --file distrobox.ini --name " + string(name)).
				WithSuggestion("List known environments: distrobox-boost profile list").
				Wrap(fmt.Errorf("%w: %s", ErrNotFound, path)).
				BuildError()
		}
		return nil, invalidProfileError(path, err)
	}
	if err := env.Validate(); err != nil {
		return nil, invalidProfileError(path, err)
	}
	return env, nil
}

// InputsOf extracts the baked recipe inputs of env.
func InputsOf(env *profile.Environment) recipe.Inputs {
	return recipe.Inputs{
		Packages:     env.Packages,
		PreInitHooks: env.PreInitHooks,
		InitHooks:    env.InitHooks,
	}
}

// RecipeOptions returns the recipe options the store fingerprints with.
func (s *Store) RecipeOptions() recipe.Options { return s.opts }

// FingerprintOf computes the BuildFingerprint of env.
func (s *Store) FingerprintOf(env *profile.Environment) recipe.Fingerprint {
	return recipe.ComputeFingerprint(env.Image, InputsOf(env), s.opts)
}

// LastBuilt returns the BuiltImageRecord of name, or nil when there is none.
func (s *Store) LastBuilt(name profile.Name) (*Record, error) {
	return loadRecord(s.RecordPath(name))
}

// RecordBuild atomically replaces the BuiltImageRecord of name.
func (s *Store) RecordBuild(name profile.Name, rec Record) error {
	if err := saveRecord(s.RecordPath(name), rec); err != nil {
		return fmt.Errorf("record build of %s: %w", name, err)
	}
	return nil
}

// ForgetBuild deletes the BuiltImageRecord of name. A missing record is fine.
func (s *Store) ForgetBuild(name profile.Name) error {
	if err := os.Remove(s.RecordPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("forget build of %s: %w", name, err)
	}
	return nil
}

// Validate applies the staleness rule: a record is valid iff its fingerprint
// equals the fingerprint of env now and its tag still exists.
func (s *Store) Validate(ctx context.Context, name profile.Name, env *profile.Environment, images ImageChecker) (Validity, error) {
	v := Validity{Fingerprint: s.FingerprintOf(env)}

	rec, err := s.LastBuilt(name)
	if err != nil {
		return v, err
	}
	v.Record = rec
	switch {
	case rec == nil:
		v.Reason = ReasonNoRecord
		return v, nil
	case rec.Fingerprint != v.Fingerprint:
		v.Reason = ReasonFingerprintChanged
		return v, nil
	}

	exists, err := images.ImageExists(ctx, container.ImageTag(rec.Tag))
	if err != nil {
		return v, fmt.Errorf("check image %s: %w", rec.Tag, err)
	}
	if !exists {
		v.Reason = ReasonImageMissing
		return v, nil
	}

	v.Valid = true
	v.Reason = ReasonUpToDate
	return v, nil
}

// SaveArtifact atomically writes the generated Containerfile of name and
// returns its path.
func (s *Store) SaveArtifact(name profile.Name, text string) (string, error) {
	path := s.ArtifactPath(name)
	if err := writeFileAtomic(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("save build artifact of %s: %w", name, err)
	}
	return path, nil
}

// Import writes env as the stored configuration of env.Name and returns the
// file path. An existing configuration is only replaced when overwrite is set.
func (s *Store) Import(env *profile.Environment, overwrite bool) (string, error) {
	var buf bytes.Buffer
	if err := profile.Encode(&buf, env); err != nil {
		return "", invalidProfileError(string(env.Name), err)
	}

	path := s.ConfigPath(env.Name)
	if !overwrite && s.Has(env.Name) {
		return "", issue.NewErrorContext().
			WithIssue(issue.InvalidProfileId).
			WithOperation("import environment").
			WithResource(string(env.Name)).
			WithSuggestion("Pass --force to replace the stored configuration").
			Wrap(fmt.Errorf("%w: %s", ErrExists, path)).
			BuildError()
	}

	if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("import %s: %w", env.Name, err)
	}
	return path, nil
}

// List returns every stored environment, sorted by name. Directories without
// a configuration file and names that fail validation are skipped.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dirs.Config)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list environments: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name := profile.Name(de.Name())
		if !s.Has(name) {
			continue
		}
		entries = append(entries, Entry{Name: name, ConfigPath: s.ConfigPath(name)})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return entries, nil
}

// Remove deletes the configuration and cache directories of name.
func (s *Store) Remove(name profile.Name) error {
	if err := name.Validate(); err != nil {
		return invalidProfileError(string(name), err)
	}
	if !s.Has(name) {
		return issue.NewErrorContext().
			WithIssue(issue.ConfigNotFoundId).
			WithOperation("remove environment").
			WithResource(string(name)).
			Wrap(ErrNotFound).
			BuildError()
	}
	for _, dir := range []string{s.dirs.EnvironmentConfigDir(string(name)), s.dirs.EnvironmentCacheDir(string(name))} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	return nil
}

func invalidProfileError(resource string, cause error) error {
	return issue.NewErrorContext().
		WithIssue(issue.InvalidProfileId).
		WithOperation("read environment configuration").
		WithResource(resource).
		WithSuggestion("Fix the reported line, or re-import the environment from its assemble file").
		Wrap(cause).
		BuildError()
}
