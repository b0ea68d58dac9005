// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are stderr fragments that indicate a failure unrelated to
// the recipe itself.
var transientMarkers = []string{
	// Rootless Podman races and OCI runtime errors.
	"ping_group_range",
	"OCI runtime error",
	// Network errors during image pull or package installation.
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"TLS handshake timeout",
	// Storage driver errors.
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientError reports whether err is a builder failure that may succeed
// if the command is run again. Nothing retries automatically; callers use
// this to word their suggestions.
//
// Context cancellation and deadline errors are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Exit code 125 is a generic engine failure (storage, cgroups).
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	text := err.Error()
	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		if buildErr.ExitCode == 125 {
			return true
		}
		text += "\n" + buildErr.Stderr
	}

	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
