// SPDX-License-Identifier: MPL-2.0

// Package lock provides a named-resource mutex that works across processes.
//
// FileLocker serializes holders of the same resource with an exclusive flock
// on a per-resource lock file. The kernel drops the flock when the holding
// process exits, however it exits, so a crashed build never wedges later
// callers. The holder's PID is recorded in the file; a waiter that times out
// while the recorded holder is dead unlinks the file and takes a fresh one.
package lock
