// SPDX-License-Identifier: MPL-2.0

// Package intercept runs distrobox commands inside an interception sandbox:
// a temporary directory of dispatcher stubs placed first in PATH, so every
// distrobox-* command the real tool spawns internally comes back through
// distrobox-boost before reaching the real executable.
//
// The real executables stay reachable through Executables, which is resolved
// once at startup from the pre-sandbox search path:
//
//	exes, err := intercept.ResolveExecutables(os.Args[0], os.Getenv)
//	sb, err := intercept.New(exes, []string{"create", "assemble"})
//	defer sb.Close()
//	code, err := sb.Run(ctx, "assemble", args)
package intercept
