// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"strings"
)

// BuildahEngine implements the Engine interface using the buildah CLI.
// It embeds BaseCLIEngine for common CLI operations.
type BuildahEngine struct {
	*BaseCLIEngine
}

// NewBuildahEngine creates a new buildah engine.
func NewBuildahEngine(opts ...BaseCLIEngineOption) *BuildahEngine {
	return &BuildahEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypeBuildah), "bud", opts...),
	}
}

// Name returns the engine name.
func (e *BuildahEngine) Name() string {
	return string(EngineTypeBuildah)
}

// Available checks if buildah is available.
func (e *BuildahEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version")
	return cmd.Run() == nil
}

// Version returns the buildah version.
//
// buildah prints "buildah version 1.33.7 (image-spec 1.1.0, runtime-spec 1.1.0)".
func (e *BuildahEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get buildah version: %w", err)
	}
	fields := strings.Fields(out)
	if len(fields) >= 3 && fields[1] == "version" {
		return fields[2], nil
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image exists in local storage.
func (e *BuildahEngine) ImageExists(ctx context.Context, image ImageTag) (bool, error) {
	return e.probeStatus(ctx, "inspect", "--type", "image", string(image))
}
