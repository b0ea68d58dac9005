// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xz-dev/distrobox-plus/internal/profile"
	"github.com/xz-dev/distrobox-plus/internal/provision"
	"github.com/xz-dev/distrobox-plus/internal/recipe"
)

// newBuildCommand creates the `distrobox-boost build` command.
func newBuildCommand(app *App) *cobra.Command {
	var opts provision.EnsureOptions
	buildCmd := &cobra.Command{
		Use:   "build <name>",
		Short: "Build the image of an environment now",
		Long: `Build the image of an environment now, instead of on the next create.

Nothing is built when the last build is still current, unless --force is
given. --dry-run prints the generated Containerfile and exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), app, profile.Name(args[0]), opts)
		},
	}
	buildCmd.Flags().BoolVar(&opts.Force, "force", false, "rebuild even when the image is up to date")
	buildCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the Containerfile, tag and fingerprint without building")
	return buildCmd
}

func runBuild(ctx context.Context, app *App, name profile.Name, opts provision.EnsureOptions) error {
	svc, err := app.openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	res, err := svc.prov.EnsureBuilt(ctx, name, opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		fmt.Fprintf(app.stdout, "# tag: %s\n# fingerprint: %s\n", res.Image, res.Fingerprint)
		fmt.Fprint(app.stdout, res.Artifact)
		printFindings(app, res.Findings)
		return nil
	}

	if res.Built {
		fmt.Fprintln(app.stdout, SuccessStyle.Render("Built ")+CmdStyle.Render(res.Image.String())+
			VerboseStyle.Render(fmt.Sprintf(" (%s, %s)", res.Reason, res.Builder)))
		if app.verbose {
			fmt.Fprintln(app.stdout, VerboseStyle.Render("Containerfile: "+res.ArtifactPath))
		}
		return nil
	}
	fmt.Fprintln(app.stdout, CmdStyle.Render(res.Image.String())+" "+SubtitleStyle.Render("is "+res.Reason))
	return nil
}

// printFindings reports lint findings of a dry run. Real builds log them
// from the provisioner.
func printFindings(app *App, findings []recipe.Finding) {
	for _, f := range findings {
		fmt.Fprintln(app.stderr, WarningStyle.Render("warning: ")+f.String())
	}
}
