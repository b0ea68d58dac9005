// SPDX-License-Identifier: MPL-2.0

// Package recipe turns the baked fields of an environment into an image
// build recipe.
//
// Generate produces one BuildStep per phase, Assemble renders the steps into
// Containerfile text, and ComputeFingerprint derives the cache key from the
// same semantic inputs. None of these perform I/O.
package recipe
