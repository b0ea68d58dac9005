// SPDX-License-Identifier: MPL-2.0

// Package history keeps a durable log of build attempts in a sqlite database
// under the cache root. It is informational: `status` reads it, and a
// history failure never fails a build.
package history
