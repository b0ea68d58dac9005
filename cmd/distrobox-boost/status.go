// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xz-dev/distrobox-plus/internal/container"
	"github.com/xz-dev/distrobox-plus/internal/history"
	"github.com/xz-dev/distrobox-plus/internal/profile"
	"github.com/xz-dev/distrobox-plus/internal/store"
)

type (
	statusOptions struct {
		output string
		limit  int
	}

	// environmentStatus is the staleness decision of one environment.
	environmentStatus struct {
		Name           string        `yaml:"name"`
		Tag            string        `yaml:"tag"`
		Valid          bool          `yaml:"valid"`
		Reason         string        `yaml:"reason"`
		Fingerprint    string        `yaml:"fingerprint,omitempty"`
		Builder        string        `yaml:"builder,omitempty"`
		BuilderVersion string        `yaml:"builder_version,omitempty"`
		Record         *store.Record `yaml:"record,omitempty"`
		Error          string        `yaml:"error,omitempty"`
	}

	// statusView is what status prints.
	statusView struct {
		Environments []environmentStatus `yaml:"environments"`
		History      []history.Attempt   `yaml:"history,omitempty"`
	}
)

// newStatusCommand creates the `distrobox-boost status` command.
func newStatusCommand(app *App) *cobra.Command {
	var opts statusOptions
	statusCmd := &cobra.Command{
		Use:   "status [name]",
		Short: "Show whether environment images are current, and recent builds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name profile.Name
			if len(args) == 1 {
				name = profile.Name(args[0])
			}
			return runStatus(cmd.Context(), app, name, opts)
		},
	}
	statusCmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format (text, yaml)")
	statusCmd.Flags().IntVar(&opts.limit, "limit", 10, "number of recent build attempts to show")
	return statusCmd
}

func runStatus(ctx context.Context, app *App, name profile.Name, opts statusOptions) error {
	if err := checkOutputFormat(opts.output); err != nil {
		return err
	}
	svc, err := app.openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	var names []profile.Name
	if name != "" {
		// Fails with ConfigNotFound for unknown names.
		if _, err := svc.store.Load(name); err != nil {
			return err
		}
		names = []profile.Name{name}
	} else {
		entries, err := svc.store.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			names = append(names, e.Name)
		}
	}

	view := statusView{Environments: make([]environmentStatus, 0, len(names))}
	for _, n := range names {
		view.Environments = append(view.Environments, checkEnvironment(ctx, svc, n))
	}
	if svc.history != nil {
		attempts, err := svc.history.Recent(ctx, string(name), opts.limit)
		if err != nil {
			return err
		}
		view.History = attempts
	}

	if opts.output == outputYAML {
		return writeYAML(app, view)
	}
	printStatus(app, view, svc.history != nil)
	return nil
}

// checkEnvironment never fails: a check error is reported in the status.
func checkEnvironment(ctx context.Context, svc *services, name profile.Name) environmentStatus {
	es := environmentStatus{Name: string(name), Tag: container.ImageTagFor(string(name)).String()}
	check, err := svc.prov.Check(ctx, name)
	if err != nil {
		es.Reason = "unknown"
		es.Error = formatErrorForDisplay(err, false)
		return es
	}
	es.Valid = check.Validity.Valid
	es.Reason = check.Validity.Reason
	es.Fingerprint = check.Validity.Fingerprint.String()
	es.Builder = check.Builder
	es.BuilderVersion = check.BuilderVersion
	es.Record = check.Validity.Record
	return es
}

func printStatus(app *App, view statusView, historyEnabled bool) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Environments"))
	if len(view.Environments) == 0 {
		fmt.Fprintln(app.stdout, "  "+SubtitleStyle.Render("(no environments imported)"))
	}
	for _, es := range view.Environments {
		state := SuccessStyle.Render("current")
		switch {
		case es.Error != "":
			state = ErrorStyle.Render("unknown")
		case !es.Valid:
			state = WarningStyle.Render("stale")
		}
		fmt.Fprintf(app.stdout, "  %s  %s  %s  %s\n",
			CmdStyle.Render(es.Name), es.Tag, state, SubtitleStyle.Render(es.Reason))
		if es.Builder != "" {
			fmt.Fprintf(app.stdout, "    %s\n", VerboseStyle.Render(strings.TrimSpace("checked with "+es.Builder+" "+es.BuilderVersion)))
		}
		if es.Record != nil {
			fmt.Fprintf(app.stdout, "    %s\n", VerboseStyle.Render(fmt.Sprintf("built %s by %s from %s",
				es.Record.BuiltAt.Local().Format(time.DateTime), es.Record.Builder, es.Record.BaseImage)))
		}
		if es.Error != "" {
			fmt.Fprintf(app.stdout, "    %s\n", es.Error)
		}
	}

	if !historyEnabled {
		return
	}
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, TitleStyle.Render("Recent builds"))
	if len(view.History) == 0 {
		fmt.Fprintln(app.stdout, "  "+SubtitleStyle.Render("(none)"))
	}
	for _, a := range view.History {
		status := a.Status.String()
		switch a.Status {
		case history.StatusSucceeded:
			status = SuccessStyle.Render(status)
		case history.StatusFailed:
			status = ErrorStyle.Render(status)
		default:
			status = WarningStyle.Render(status)
		}
		line := fmt.Sprintf("  %s  %s  %s  %s", a.StartedAt.Local().Format(time.DateTime), CmdStyle.Render(a.Name), status, a.Builder)
		if !a.EndedAt.IsZero() {
			line += "  " + a.EndedAt.Sub(a.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintln(app.stdout, line)
		if a.Error != "" {
			fmt.Fprintf(app.stdout, "    %s\n", VerboseStyle.Render(a.Error))
		}
	}
}
