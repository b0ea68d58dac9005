// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xz-dev/distrobox-plus/internal/argv"
	"github.com/xz-dev/distrobox-plus/internal/profile"
	"github.com/xz-dev/distrobox-plus/internal/provision"
)

// newCreateCommand creates the intercepted create command.
func newCreateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create [args...]",
		Short: "Create a container, from a prebuilt image when the environment is known",
		Long: `Create a container.

When --name names an imported environment, its image is built first (or
reused when it is up to date), --image is pointed at it, and the package and
hook flags already baked into the image are dropped. Otherwise the arguments
go to distrobox create unchanged.`,
		GroupID:            groupDistrobox,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCreate(cmd.Context(), args)
		},
	}
}

func (a *App) runCreate(ctx context.Context, args []string) error {
	boosted, err := a.boostCreateArgs(ctx, args)
	if err != nil {
		return err
	}
	return a.runIntercepted(ctx, "create", boosted)
}

// boostCreateArgs makes sure the image of the named environment is current
// and returns args rewritten to use it. Without --name, or for a name that
// was never imported, args are returned as they are. A failed build is
// returned as an error and create must not run.
func (a *App) boostCreateArgs(ctx context.Context, args []string) ([]string, error) {
	value, ok := argv.FlagValue(args, argv.NameFlags...)
	if !ok || value == "" {
		slog.Debug("create without --name, delegating unchanged")
		return args, nil
	}
	name := profile.Name(value)

	svc, err := a.openServices(ctx)
	if err != nil {
		return nil, err
	}
	defer closeServices(svc)

	if !svc.store.Has(name) {
		slog.Debug("no stored environment, delegating unchanged", "name", name)
		return args, nil
	}

	res, err := svc.prov.EnsureBuilt(ctx, name, provision.EnsureOptions{})
	if err != nil {
		return nil, err
	}
	if res.Built {
		fmt.Fprintln(a.stderr, SuccessStyle.Render("Built image ")+CmdStyle.Render(res.Image.String())+
			VerboseStyle.Render(" ("+res.Reason+")"))
	} else {
		fmt.Fprintln(a.stderr, SubtitleStyle.Render("Using image ")+CmdStyle.Render(res.Image.String()))
	}

	return argv.Rewrite(args, res.Image.String()), nil
}
