// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests: Must* wrappers that fail
// the test on error, fake executables, a controllable clock and XDG directory
// isolation.
package testutil
