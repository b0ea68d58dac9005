// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xz-dev/distrobox-plus/internal/config"
)

// newConfigCommand creates the `distrobox-boost config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage distrobox-boost settings",
		Long: `Manage distrobox-boost settings.

Settings are read from $XDG_CONFIG_HOME/distrobox-boost/config.cue, or the
file given with --config or ` + EnvConfigFile + `. Every setting can be
overridden with a DISTROBOX_BOOST_<KEY> environment variable, for example
DISTROBOX_BOOST_BUILDER=podman.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the settings file and data directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective settings as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.settings(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(loaded.Config))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	loaded, err := app.settings(ctx)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	headerStyle := TitleStyle
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, headerStyle.Render("Current Settings"))
	fmt.Fprintln(app.stdout)

	if loaded.Path != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Settings file"), loaded.Path)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Settings file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("builder"), valueStyle.Render(string(cfg.Builder)))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("lock_timeout"), valueStyle.Render(cfg.LockTimeout.String()))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("recipe"))
	fmt.Fprintf(app.stdout, "  upgrade: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Recipe.Upgrade)))
	fmt.Fprintf(app.stdout, "  install_deps: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Recipe.InstallDeps)))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("history"))
	fmt.Fprintf(app.stdout, "  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.History.Enabled)))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

// settingsPath is the --config file when given, else the default location.
func settingsPath(app *App) (string, config.Dirs, error) {
	dirs, err := config.ResolveDirs()
	if err != nil {
		return "", config.Dirs{}, err
	}
	if app.configPath != "" {
		return app.configPath, dirs, nil
	}
	return dirs.SettingsFile(), dirs, nil
}

func initConfig(app *App) error {
	path, _, err := settingsPath(app)
	if err != nil {
		return err
	}

	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Settings file already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default settings at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	path, dirs, err := settingsPath(app)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Settings file: %s\n", path)
	fmt.Fprintf(app.stdout, "Config directory: %s\n", dirs.Config)
	fmt.Fprintf(app.stdout, "Cache directory: %s\n", dirs.Cache)
	fmt.Fprintf(app.stdout, "History database: %s\n", dirs.HistoryFile())
	return nil
}
