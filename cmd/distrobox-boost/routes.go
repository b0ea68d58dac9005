// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"slices"
	"strings"
)

const (
	// routePassthrough hands the command to the real tool before any flag
	// parsing happens here.
	routePassthrough route = iota
	// routeLocal is a subcommand implemented by distrobox-boost.
	routeLocal
	// routeInterceptedCreate builds the environment image, then delegates
	// a rewritten create inside a sandbox.
	routeInterceptedCreate
	// routeInterceptedOther delegates inside a sandbox so nested create
	// calls are caught.
	routeInterceptedOther
)

type (
	// route is the handling state of a first argument.
	route int

	// globalFlags are the root flags accepted before the command name.
	globalFlags struct {
		verbose    bool
		configPath string
	}
)

// routes maps the first argument to its handling. Names that are absent
// pass through.
var routes = map[string]route{
	"create": routeInterceptedCreate,

	"assemble":       routeInterceptedOther,
	"ephemeral":      routeInterceptedOther,
	"enter":          routeInterceptedOther,
	"rm":             routeInterceptedOther,
	"stop":           routeInterceptedOther,
	"list":           routeInterceptedOther,
	"upgrade":        routeInterceptedOther,
	"generate-entry": routeInterceptedOther,

	"profile":    routeLocal,
	"build":      routeLocal,
	"status":     routeLocal,
	"config":     routeLocal,
	"import":     routeLocal,
	"help":       routeLocal,
	"completion": routeLocal,
	// cobra's hidden shell completion entry points
	"__complete":       routeLocal,
	"__completeNoDesc": routeLocal,
}

// routeOf returns the handling of command. Flags (like --help or
// --version) belong to the root command.
func routeOf(command string) route {
	if command == "" || strings.HasPrefix(command, "-") {
		return routeLocal
	}
	if r, ok := routes[command]; ok {
		return r
	}
	return routePassthrough
}

// interceptedCommands returns every command name a sandbox stubs out,
// sorted.
func interceptedCommands() []string {
	var names []string
	for name, r := range routes {
		if r == routeInterceptedCreate || r == routeInterceptedOther {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// splitGlobalFlags consumes the root flags in front of the command name and
// returns them with the remaining arguments. Intercepted commands never see
// these flags, since the real tool has flags of the same name.
func splitGlobalFlags(args []string) (globalFlags, []string) {
	var g globalFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-v" || arg == "--verbose":
			g.verbose = true
		case arg == "--config" && i+1 < len(args):
			g.configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			g.configPath = strings.TrimPrefix(arg, "--config=")
		default:
			return g, args[i:]
		}
	}
	return g, nil
}
