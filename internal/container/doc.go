// SPDX-License-Identifier: MPL-2.0

// Package container provides a unified abstraction over the image builders
// distrobox-boost can drive (buildah, podman and docker).
//
// The Engine interface defines the operations the build orchestrator needs:
// Available, Version, Build, ImageExists and RemoveImage. The three
// implementations embed BaseCLIEngine, which owns argument construction and
// command execution. Command creation is injectable with WithExecCommand so
// tests can substitute a helper process.
//
// Select probes engines in priority order (buildah, podman, docker), trying a
// preferred engine first, and fails with a NoBuilderAvailable issue when none
// responds.
//
// Builds never read from the caller's working directory: the Containerfile is
// passed on stdin and the build context is an empty temporary directory.
package container
