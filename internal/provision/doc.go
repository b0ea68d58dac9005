// SPDX-License-Identifier: MPL-2.0

// Package provision is the build orchestrator. It guarantees that when a
// distrobox create proceeds, the environment's image exists and matches its
// current configuration.
//
// The main entry point is Provisioner.EnsureBuilt:
//
//	p := provision.New(st, locker, provision.WithPreferredEngine(container.EngineTypeAuto))
//	result, err := p.EnsureBuilt(ctx, "dev", provision.EnsureOptions{})
//	// result.Image is the tag to hand to distrobox create
//
// Validity is checked once without the lock and again after acquiring it, so
// concurrent callers for the same environment build at most once. The old
// BuiltImageRecord is forgotten before building and written only after the
// builder succeeds.
package provision
