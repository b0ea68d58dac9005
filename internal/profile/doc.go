// SPDX-License-Identifier: MPL-2.0

// Package profile models a stored environment configuration and reads and
// writes the key=value files it lives in.
//
// A stored file has no section header: the environment name is the name of
// its directory. Assemble files, as consumed by 'distrobox assemble', carry
// one [section] per environment and are only read during import.
package profile
