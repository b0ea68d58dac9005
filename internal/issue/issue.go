// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a class of failure.
type Id int

const (
	ConfigNotFoundId Id = iota + 1
	NoBuilderAvailableId
	BuildFailedId
	LockTimeoutId
	StaleLockId
	InterceptionSetupFailedId
	CommandNotFoundId
	InvalidProfileId
	SettingsInvalidId
)

// Process exit codes. They follow sysexits(3) where a matching code exists.
const (
	ExitGeneric         = 1
	ExitDataErr         = 65
	ExitUnavailable     = 69
	ExitSoftware        = 70
	ExitCantCreate      = 73
	ExitTempFail        = 75
	ExitConfig          = 78
	ExitCommandNotFound = 127
)

type MarkdownMsg string

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // stable identifier printed in logs
	exitCode int         // process exit code for this class
	mdMsg    MarkdownMsg // Markdown text that will be rendered
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
}

func (i *Issue) ExitCode() int {
	return i.exitCode
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the guidance text with the given glamour style ("dark",
// "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id:       ConfigNotFoundId,
		name:     "ConfigNotFound",
		exitCode: ExitConfig,
		mdMsg: `
# No stored configuration for this environment

distrobox-boost only builds images for environments it knows about.

## Things you can try:
- Import the environment from a distrobox assemble file:
~~~
$ distrobox-boost import --file distrobox.ini --name mybox
~~~
- List the environments that are already known:
~~~
$ distrobox-boost profile list
~~~`,
	}

	noBuilderAvailableIssue = &Issue{
		id:       NoBuilderAvailableId,
		name:     "NoBuilderAvailable",
		exitCode: ExitUnavailable,
		mdMsg: `
# No image builder found

None of the supported image builders could be found on the search path.
They are probed in this order: **buildah**, **podman**, **docker**.

## Things you can try:
- Install buildah (recommended) or podman with your package manager
- Check that the builder answers ` + "`<builder> version`" + ` without errors
- Pin a builder in the settings file:
~~~cue
builder: "podman"
~~~`,
	}

	buildFailedIssue = &Issue{
		id:       BuildFailedId,
		name:     "BuildFailed",
		exitCode: ExitSoftware,
		mdMsg: `
# Image build failed

The image builder exited with an error. No image was recorded, so the next
create call will try the build again.

## Things you can try:
- Inspect the generated Containerfile:
~~~
$ distrobox-boost build mybox --dry-run
~~~
- Check that every package in ` + "`additional_packages`" + ` exists for the base image
- Run the hooks by hand inside the base image to find the failing command`,
	}

	lockTimeoutIssue = &Issue{
		id:       LockTimeoutId,
		name:     "LockTimeout",
		exitCode: ExitTempFail,
		mdMsg: `
# Another build is still running

A different distrobox-boost process holds the build lock for this
environment and did not finish in time.

## Things you can try:
- Wait for the other build to finish and retry
- Raise the timeout in the settings file:
~~~cue
lock_timeout: "1h"
~~~`,
	}

	staleLockIssue = &Issue{
		id:       StaleLockId,
		name:     "StaleLock",
		exitCode: ExitTempFail,
		mdMsg: `
# Stale build lock

The process recorded as the lock holder is gone, but the lock could not be
reclaimed.

## Things you can try:
- Check the permissions of the cache directory
- Remove the lock file shown above and retry`,
	}

	interceptionSetupFailedIssue = &Issue{
		id:       InterceptionSetupFailedId,
		name:     "InterceptionSetupFailed",
		exitCode: ExitCantCreate,
		mdMsg: `
# Could not prepare the command sandbox

distrobox-boost creates a temporary directory of dispatcher scripts before
running distrobox. That directory could not be created or populated.

## Things you can try:
- Check that ` + "`$TMPDIR`" + ` (or /tmp) exists and is writable
- Check that the temporary directory is not mounted noexec`,
	}

	commandNotFoundIssue = &Issue{
		id:       CommandNotFoundId,
		name:     "CommandNotFound",
		exitCode: ExitCommandNotFound,
		mdMsg: `
# distrobox not found

The real distrobox command could not be found on the search path.

## Things you can try:
- Install distrobox and make sure ` + "`distrobox`" + ` is on your PATH`,
	}

	invalidProfileIssue = &Issue{
		id:       InvalidProfileId,
		name:     "InvalidProfile",
		exitCode: ExitDataErr,
		mdMsg: `
# Invalid environment configuration

The configuration could not be parsed.

## Things you can try:
- Check that quoted hook values have balanced quotes
- Check that ` + "`image`" + ` is declared exactly once`,
	}

	settingsInvalidIssue = &Issue{
		id:       SettingsInvalidId,
		name:     "SettingsInvalid",
		exitCode: ExitConfig,
		mdMsg: `
# Invalid settings file

The settings file does not match the expected schema.

## Things you can try:
- Print the effective settings:
~~~
$ distrobox-boost config show
~~~
- Write a fresh default settings file:
~~~
$ distrobox-boost config init
~~~`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():          configNotFoundIssue,
		noBuilderAvailableIssue.Id():      noBuilderAvailableIssue,
		buildFailedIssue.Id():             buildFailedIssue,
		lockTimeoutIssue.Id():             lockTimeoutIssue,
		staleLockIssue.Id():               staleLockIssue,
		interceptionSetupFailedIssue.Id(): interceptionSetupFailedIssue,
		commandNotFoundIssue.Id():         commandNotFoundIssue,
		invalidProfileIssue.Id():          invalidProfileIssue,
		settingsInvalidIssue.Id():         settingsInvalidIssue,
	}
)

// Values returns every registered issue ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
