// SPDX-License-Identifier: MPL-2.0

// Package issue provides the error taxonomy of distrobox-boost.
//
// Every user-facing failure is an ActionableError that may carry an issue Id.
// The Id selects the process exit code and a Markdown guidance text that the
// CLI renders in verbose mode.
package issue
