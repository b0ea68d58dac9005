// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/xz-dev/distrobox-plus/internal/config"
	"github.com/xz-dev/distrobox-plus/internal/container"
	"github.com/xz-dev/distrobox-plus/internal/history"
	"github.com/xz-dev/distrobox-plus/internal/intercept"
	"github.com/xz-dev/distrobox-plus/internal/issue"
	"github.com/xz-dev/distrobox-plus/internal/lock"
	"github.com/xz-dev/distrobox-plus/internal/provision"
	"github.com/xz-dev/distrobox-plus/internal/recipe"
	"github.com/xz-dev/distrobox-plus/internal/store"
)

// EnvConfigFile names a settings file for invocations that cannot take
// --config, such as create calls made by the real tool from a sandbox.
const EnvConfigFile = "DISTROBOX_BOOST_CONFIG"

type (
	// App wires CLI services and shared dependencies. All cobra handlers
	// receive an App and reach settings, storage and builders through it.
	App struct {
		Config  config.Provider
		exes    *intercept.Executables
		stdin   io.Reader
		stdout  io.Writer
		stderr  io.Writer
		tempDir string

		verbose    bool
		configPath string
		loaded     *config.Loaded
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      config.Provider
		Executables *intercept.Executables
		Stdin       io.Reader
		Stdout      io.Writer
		Stderr      io.Writer
		// TempDir is where sandboxes are created. Empty means os.TempDir().
		TempDir string
	}

	// services are the per-invocation domain objects built from settings.
	services struct {
		cfg     *config.Config
		dirs    config.Dirs
		store   *store.Store
		prov    *provision.Provisioner
		history *history.Store
	}
)

// NewApp creates an App, resolving the executables of this process when
// deps does not provide them.
func NewApp(deps Dependencies) (*App, error) {
	app := &App{
		Config:     deps.Config,
		exes:       deps.Executables,
		stdin:      deps.Stdin,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		tempDir:    deps.TempDir,
		configPath: os.Getenv(EnvConfigFile),
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.exes == nil {
		exes, err := intercept.ResolveExecutables(os.Args[0], os.Getenv)
		if err != nil {
			return nil, err
		}
		app.exes = exes
	}
	return app, nil
}

// configureLogging installs a charmbracelet/log logger as the slog default.
func (a *App) configureLogging() {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}

// settings loads the application settings once per invocation. ui.verbose
// turns on debug logging when --verbose was not given.
func (a *App) settings(ctx context.Context) (*config.Loaded, error) {
	if a.loaded != nil {
		return a.loaded, nil
	}
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, err
	}
	if loaded.Config.UI.Verbose && !a.verbose {
		a.verbose = true
		a.configureLogging()
	}
	a.loaded = loaded
	return loaded, nil
}

// openStore returns the configuration store and the settings it was built
// from.
func (a *App) openStore(ctx context.Context) (*store.Store, *config.Config, error) {
	loaded, err := a.settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	dirs, err := config.ResolveDirs()
	if err != nil {
		return nil, nil, err
	}
	cfg := loaded.Config
	st := store.New(dirs, recipe.Options{
		Upgrade:     cfg.Recipe.Upgrade,
		InstallDeps: cfg.Recipe.InstallDeps,
	})
	return st, cfg, nil
}

// openServices builds the store, the build lock and the provisioner. The
// caller must Close the result.
func (a *App) openServices(ctx context.Context) (*services, error) {
	st, cfg, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	svc := &services{cfg: cfg, dirs: st.Dirs(), store: st}

	locker := lock.NewFileLocker(st.LockPath, lock.WithTimeout(cfg.LockTimeout))
	opts := []provision.Option{
		provision.WithPreferredEngine(container.EngineType(cfg.Builder)),
		provision.WithOutput(a.stderr, a.stderr),
	}
	if cfg.History.Enabled {
		h, err := history.Open(svc.dirs.HistoryFile())
		if err != nil {
			slog.Warn("build history unavailable", "path", svc.dirs.HistoryFile(), "error", err)
		} else {
			svc.history = h
			opts = append(opts, provision.WithHistory(h))
		}
	}
	svc.prov = provision.New(st, locker, opts...)
	return svc, nil
}

// selectEngine returns the builder for direct image operations, preferring
// the one named by preferred when it is usable.
func (s *services) selectEngine(ctx context.Context, preferred string) (container.Engine, error) {
	if preferred == "" {
		preferred = string(s.cfg.Builder)
	}
	return container.Select(ctx, container.EngineType(preferred))
}

// Close releases the history database.
func (s *services) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

func closeServices(svc *services) {
	if err := svc.Close(); err != nil {
		slog.Debug("failed to close services", "error", err)
	}
}

// sandboxOptions returns the options every sandbox of this App uses. Nested
// invocations get the settings file of this one.
func (a *App) sandboxOptions() []intercept.Option {
	opts := []intercept.Option{intercept.WithStdio(a.stdin, a.stdout, a.stderr)}
	if a.tempDir != "" {
		opts = append(opts, intercept.WithTempDir(a.tempDir))
	}
	if a.configPath != "" {
		path := a.configPath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		opts = append(opts, intercept.WithEnv(EnvConfigFile+"="+path))
	}
	return opts
}

// handleError is the fang error handler. Errors carrying a delegated exit
// status are silent. Classified errors print their suggestions, and in
// verbose mode the guidance of their issue.
func (a *App) handleError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))

	if !a.verbose {
		return
	}
	if id := issue.IdOf(err); id != 0 {
		if rendered, renderErr := issue.Get(id).Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method, which adds the error chain in verbose mode.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// exitCodeFor maps the result of a command to the process exit status.
func exitCodeFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return issue.ExitCodeOf(err)
}
