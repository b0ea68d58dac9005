// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xz-dev/distrobox-plus/internal/container"
	"github.com/xz-dev/distrobox-plus/internal/issue"
	"github.com/xz-dev/distrobox-plus/internal/profile"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

type (
	importOptions struct {
		file  string
		name  string
		force bool
	}

	// profileView is what profile show prints.
	profileView struct {
		profile.Environment `yaml:",inline"`
		Tag                 string `yaml:"tag"`
		Fingerprint         string `yaml:"fingerprint"`
		ConfigPath          string `yaml:"config_path"`
	}
)

// newProfileCommand creates the `distrobox-boost profile` command tree.
func newProfileCommand(app *App) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage imported environments",
		Long: `Manage imported environments.

An environment is stored as $XDG_CONFIG_HOME/distrobox-boost/<name>/distrobox.ini.
Its image is tagged <name>:latest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	profileCmd.AddCommand(newImportCommand(app, "import", "Import an assemble file section as an environment"))

	profileCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List imported environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProfiles(cmd.Context(), app)
		},
	})

	var removeImage bool
	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove an imported environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeProfile(cmd.Context(), app, profile.Name(args[0]), removeImage)
		},
	}
	rmCmd.Flags().BoolVar(&removeImage, "image", false, "also remove the built image")
	profileCmd.AddCommand(rmCmd)

	var output string
	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show an imported environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showProfile(cmd.Context(), app, profile.Name(args[0]), output)
		},
	}
	showCmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, yaml)")
	profileCmd.AddCommand(showCmd)

	return profileCmd
}

// newTopLevelImportCommand is `distrobox-boost import`, a shortcut for
// profile import.
func newTopLevelImportCommand(app *App) *cobra.Command {
	return newImportCommand(app, "import", "Import an assemble file section as an environment (same as profile import)")
}

func newImportCommand(app *App, use, short string) *cobra.Command {
	var opts importOptions
	importCmd := &cobra.Command{
		Use:   use + " --file <file> --name <name>",
		Short: short,
		Long: short + `.

The section named --name is read from the assemble file, with include=
entries expanded. image, additional_packages, init_hooks and pre_init_hooks
are baked into the image. Every other key is kept for distrobox create.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return importProfile(cmd.Context(), app, opts)
		},
	}
	importCmd.Flags().StringVarP(&opts.file, "file", "f", "", "assemble file to read")
	importCmd.Flags().StringVarP(&opts.name, "name", "n", "", "section to import, and name of the environment")
	importCmd.Flags().BoolVar(&opts.force, "force", false, "replace an existing environment")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("name")
	return importCmd
}

func importProfile(ctx context.Context, app *App, opts importOptions) error {
	name := profile.Name(opts.name)
	env, err := profile.ParseAssembleFile(opts.file, name)
	if err != nil {
		ec := issue.NewErrorContext().
			WithIssue(issue.InvalidProfileId).
			WithOperation("import environment").
			WithResource(opts.file)
		if errors.Is(err, os.ErrNotExist) {
			ec = ec.WithSuggestion("Check the --file path")
		}
		return ec.Wrap(err).BuildError()
	}

	st, _, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	path, err := st.Import(env, opts.force)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, SuccessStyle.Render("Imported ")+CmdStyle.Render(string(name))+" → "+path)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("The image is built on the next create, or now with: ")+
		CmdStyle.Render("distrobox-boost build "+string(name)))
	return nil
}

func listProfiles(ctx context.Context, app *App) error {
	st, _, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	entries, err := st.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no environments imported)"))
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(app.stdout, "%s\t%s\n", CmdStyle.Render(string(e.Name)), e.ConfigPath)
	}
	return nil
}

// removeProfile deletes the stored environment. With removeImage the image
// is removed first, with the builder that built it when it is still usable.
func removeProfile(ctx context.Context, app *App, name profile.Name, removeImage bool) error {
	svc, err := app.openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	if !svc.store.Has(name) {
		// Load produces the ConfigNotFound error with its suggestions.
		if _, err := svc.store.Load(name); err != nil {
			return err
		}
	}

	if removeImage {
		preferred := ""
		if rec, err := svc.store.LastBuilt(name); err == nil && rec != nil {
			preferred = rec.Builder
		}
		engine, err := svc.selectEngine(ctx, preferred)
		if err != nil {
			return err
		}
		tag := container.ImageTagFor(string(name))
		exists, err := engine.ImageExists(ctx, tag)
		if err != nil {
			return err
		}
		if exists {
			if err := engine.RemoveImage(ctx, tag, true); err != nil {
				return issue.WrapWithOperation(err, "remove image "+tag.String())
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Removed image ")+CmdStyle.Render(tag.String()))
		}
	}

	if err := svc.store.Remove(name); err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, SuccessStyle.Render("Removed ")+CmdStyle.Render(string(name)))
	return nil
}

func showProfile(ctx context.Context, app *App, name profile.Name, output string) error {
	if err := checkOutputFormat(output); err != nil {
		return err
	}
	st, _, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	env, err := st.Load(name)
	if err != nil {
		return err
	}
	view := profileView{
		Environment: *env,
		Tag:         container.ImageTagFor(string(name)).String(),
		Fingerprint: st.FingerprintOf(env).String(),
		ConfigPath:  st.ConfigPath(name),
	}

	if output == outputYAML {
		return writeYAML(app, view)
	}

	keyStyle := CmdStyle
	fmt.Fprintln(app.stdout, TitleStyle.Render(string(name)))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("image"), env.Image)
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("tag"), view.Tag)
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("fingerprint"), view.Fingerprint)
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("config"), view.ConfigPath)
	printList(app, "additional_packages", env.Packages)
	printList(app, "pre_init_hooks", env.PreInitHooks)
	printList(app, "init_hooks", env.InitHooks)
	if len(env.Options) > 0 {
		fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("options"))
		for _, o := range env.Options {
			fmt.Fprintf(app.stdout, "  %s=%s\n", o.Key, o.Value)
		}
	}
	return nil
}

func printList(app *App, key string, values []string) {
	fmt.Fprintf(app.stdout, "%s:", CmdStyle.Render(key))
	if len(values) == 0 {
		fmt.Fprintln(app.stdout, " "+SubtitleStyle.Render("(none)"))
		return
	}
	fmt.Fprintln(app.stdout)
	for _, v := range values {
		fmt.Fprintf(app.stdout, "  - %s\n", v)
	}
}

func checkOutputFormat(output string) error {
	switch output {
	case outputText, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text or yaml)", output)
	}
}

func writeYAML(app *App, v any) error {
	enc := yaml.NewEncoder(app.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
