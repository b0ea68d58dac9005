// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xz-dev/distrobox-plus/internal/intercept"
)

// newInterceptedCommand creates a command that runs the real distrobox
// command inside an interception sandbox. Flags are not parsed: every
// argument belongs to the real command.
func newInterceptedCommand(app *App, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:                name + " [args...]",
		Short:              short,
		GroupID:            groupDistrobox,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runIntercepted(cmd.Context(), name, args)
		},
	}
}

// newAssembleCommand is the intercepted assemble command plus the local
// import subcommand.
func newAssembleCommand(app *App) *cobra.Command {
	assembleCmd := newInterceptedCommand(app, "assemble", "Create or remove containers from an assemble file")
	assembleCmd.AddCommand(newImportCommand(app, "import", "Import an assemble file section as an environment"))
	return assembleCmd
}

// runIntercepted runs the real command in a sandbox. A nested invocation
// reuses the sandbox it was started from. A non-zero status of the real
// command becomes an ExitError without a message.
func (a *App) runIntercepted(ctx context.Context, command string, args []string) error {
	sb, err := intercept.New(a.exes, interceptedCommands(), a.sandboxOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := sb.Close(); err != nil {
			slog.Debug("failed to remove sandbox", "dir", sb.Dir(), "error", err)
		}
	}()

	code, err := sb.Run(ctx, command, args)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
