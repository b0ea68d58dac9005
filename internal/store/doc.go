// SPDX-License-Identifier: MPL-2.0

// Package store persists environment configurations and what was last built
// from them.
//
// Environment configurations live in the config root and are read-only to the
// build path. Build artifacts (the generated Containerfile) and the
// BuiltImageRecord (build.toml) live in the cache root. A record exists only
// after a successful build: the orchestrator forgets the old record before it
// starts building, so a failed or interrupted build leaves no record behind.
package store
