// SPDX-License-Identifier: MPL-2.0

package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/xz-dev/distrobox-plus/internal/recipe"
)

// Record is the BuiltImageRecord: what the last successful build produced.
type Record struct {
	Fingerprint recipe.Fingerprint `toml:"fingerprint" yaml:"fingerprint"`
	Tag         string             `toml:"tag" yaml:"tag"`
	Builder     string             `toml:"builder" yaml:"builder"`
	BaseImage   string             `toml:"base_image" yaml:"base_image"`
	BuiltAt     time.Time          `toml:"built_at" yaml:"built_at"`
}

// loadRecord reads a record file. A missing file is not an error and returns
// nil. An unreadable record is treated the same way, with a warning, so the
// next build simply replaces it.
func loadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading build record: %w", err)
	}

	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		slog.Warn("ignoring unreadable build record", "path", path, "error", err)
		return nil, nil
	}
	if rec.Fingerprint == "" || rec.Tag == "" {
		slog.Warn("ignoring incomplete build record", "path", path)
		return nil, nil
	}
	return &rec, nil
}

func saveRecord(path string, rec Record) error {
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding build record: %w", err)
	}
	return writeFileAtomic(path, data, 0o644)
}

// writeFileAtomic writes data next to path and renames it into place, so
// readers see either the old content or the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
