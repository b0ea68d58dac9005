// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the distrobox-boost command line: the router that
// decides per command whether to pass it through, run it in an interception
// sandbox, or handle it locally.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/xz-dev/distrobox-plus/internal/config"
	"github.com/xz-dev/distrobox-plus/internal/intercept"
	"github.com/xz-dev/distrobox-plus/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

const groupDistrobox = "distrobox"

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command line and exits the process with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the command line with os.Args and returns the exit status.
func Main() int {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, false))
		return issue.ExitCodeOf(err)
	}
	return app.Run(context.Background(), os.Args[1:])
}

// Run routes args and returns the exit status. Passthrough commands are
// handed to the real tool before cobra sees them. Intercepted commands get
// their arguments without the root flags in front of the command name.
func (a *App) Run(ctx context.Context, args []string) int {
	g, rest := splitGlobalFlags(args)
	a.verbose = g.verbose
	if g.configPath != "" {
		a.configPath = g.configPath
	}
	a.configureLogging()

	if len(rest) > 0 {
		switch routeOf(rest[0]) {
		case routePassthrough:
			code, err := intercept.Passthrough(ctx, a.exes, rest[0], rest[1:])
			if err != nil {
				a.handleError(a.stderr, err)
				return exitCodeFor(err)
			}
			return code
		case routeInterceptedCreate, routeInterceptedOther:
			args = rest
		}
	}

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithoutManpage(),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			a.handleError(w, err)
		}),
	)
	return exitCodeFor(err)
}

// newRootCommand creates the command tree. Root flag defaults are the values
// already taken from the front of the arguments, so intercepted commands
// keep them even though their flags are not parsed.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Prebuilt images for distrobox environments",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - prebuilt images for distrobox environments") + `

distrobox-boost sits in front of distrobox. When a container is created for
an environment it knows, it first builds an image with the environment's
packages and hooks baked in, then creates the container from that image.
Every other command goes to distrobox unchanged.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Import an environment from an assemble file
  2. Create containers as usual, through distrobox-boost
  3. The image is built once and reused until the configuration changes

` + SubtitleStyle.Render("Examples:") + `
  distrobox-boost profile import --file distrobox.ini --name mybox
  distrobox-boost create --name mybox --image archlinux:latest
  distrobox-boost assemble create --file distrobox.ini
  distrobox-boost ephemeral --name mybox
  distrobox-boost status`,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", app.verbose, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath,
		"settings file (default is $XDG_CONFIG_HOME/distrobox-boost/config.cue)")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		app.configureLogging()
	}

	rootCmd.AddGroup(&cobra.Group{ID: groupDistrobox, Title: "Distrobox Commands:"})

	rootCmd.AddCommand(newCreateCommand(app))
	rootCmd.AddCommand(newAssembleCommand(app))
	for _, c := range []struct{ name, short string }{
		{"ephemeral", "Create a temporary container, enter it, and remove it on exit"},
		{"enter", "Enter a container"},
		{"rm", "Remove containers"},
		{"stop", "Stop containers"},
		{"list", "List containers"},
		{"upgrade", "Upgrade containers"},
		{"generate-entry", "Generate a desktop entry for a container"},
	} {
		rootCmd.AddCommand(newInterceptedCommand(app, c.name, c.short))
	}

	rootCmd.AddCommand(newProfileCommand(app))
	rootCmd.AddCommand(newTopLevelImportCommand(app))
	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newStatusCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newCompletionCommand())

	return rootCmd
}
