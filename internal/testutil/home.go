// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// XDGDirs are the isolated base directories created by SetXDGDirs.
type XDGDirs struct {
	Config string
	Cache  string
}

// SetXDGDirs points XDG_CONFIG_HOME and XDG_CACHE_HOME at fresh directories
// under root, so settings and caches never touch the real home directory.
// It uses t.Setenv, so the calling test must not be parallel.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    dirs := testutil.SetXDGDirs(t, t.TempDir())
//	    // dirs.Config/distrobox-boost is now the config root
//	}
func SetXDGDirs(t *testing.T, root string) XDGDirs {
	t.Helper()

	dirs := XDGDirs{
		Config: filepath.Join(root, "config"),
		Cache:  filepath.Join(root, "cache"),
	}
	MustMkdirAll(t, dirs.Config, 0o755)
	MustMkdirAll(t, dirs.Cache, 0o755)
	t.Setenv("XDG_CONFIG_HOME", dirs.Config)
	t.Setenv("XDG_CACHE_HOME", dirs.Cache)
	return dirs
}
