// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"regexp"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Build phases, in the order they run.
const (
	PhaseUpgrade         Phase = "upgrade"
	PhasePreInit         Phase = "pre_init"
	PhaseInstallDeps     Phase = "install_deps"
	PhaseInstallPackages Phase = "install_packages"
	PhaseInit            Phase = "init"
)

var safeWord = regexp.MustCompile(`^[A-Za-z0-9._+:@/=,-]+$`)

type (
	// Phase tags a BuildStep.
	Phase string

	// Inputs are the baked fields that shape the recipe, minus the base image.
	Inputs struct {
		Packages     []string
		PreInitHooks []string
		InitHooks    []string
	}

	// Options toggles the optional phases. Disabled phases still emit a step.
	Options struct {
		Upgrade     bool
		InstallDeps bool
	}

	// Branch is one arm of an ecosystem dispatch.
	Branch struct {
		Ecosystem string
		Detect    string
		Run       string
	}

	// BuildStep is one phase of the recipe. Dispatch phases carry Branches,
	// hook phases carry Commands; an empty step carries neither.
	BuildStep struct {
		Phase    Phase
		Branches []Branch
		Commands []string
	}
)

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{PhaseUpgrade, PhasePreInit, PhaseInstallDeps, PhaseInstallPackages, PhaseInit}
}

// DefaultOptions enables every phase.
func DefaultOptions() Options {
	return Options{Upgrade: true, InstallDeps: true}
}

// Empty reports whether the step has nothing to run.
func (s BuildStep) Empty() bool {
	return len(s.Branches) == 0 && len(s.Commands) == 0
}

// Script renders the shell program of the step, or "" for an empty step.
// Dispatch steps try each branch in order and fail when none matches. Each
// hook runs in its own sh -c, so a comment or a trailing & in one hook
// cannot reach the next.
func (s BuildStep) Script() string {
	switch {
	case len(s.Branches) > 0:
		var sb strings.Builder
		sb.WriteString("set -e; ")
		for i, b := range s.Branches {
			if i == 0 {
				sb.WriteString("if ")
			} else {
				sb.WriteString("elif ")
			}
			sb.WriteString(b.Detect)
			sb.WriteString("; then ")
			sb.WriteString(b.Run)
			sb.WriteString("; ")
		}
		sb.WriteString(`else echo "distrobox-boost: unsupported distribution: no supported package manager found (phase `)
		sb.WriteString(string(s.Phase))
		sb.WriteString(`)" >&2; exit 1; fi`)
		return sb.String()
	case len(s.Commands) > 0:
		parts := make([]string, len(s.Commands))
		for i, c := range s.Commands {
			parts[i] = "sh -c " + quoteWord(c)
		}
		return "set -e; " + strings.Join(parts, "; ")
	default:
		return ""
	}
}

// Generate builds the ordered steps for in. The output depends only on in
// and opts: packages are deduplicated and sorted, hooks keep their order.
func Generate(in Inputs, opts Options) []BuildStep {
	steps := make([]BuildStep, 0, 5)

	upgrade := BuildStep{Phase: PhaseUpgrade}
	if opts.Upgrade {
		upgrade.Branches = dispatch(func(e Ecosystem) string { return e.Upgrade() })
	}
	steps = append(steps, upgrade)

	steps = append(steps, BuildStep{Phase: PhasePreInit, Commands: hookCommands(in.PreInitHooks)})

	deps := BuildStep{Phase: PhaseInstallDeps}
	if opts.InstallDeps {
		deps.Branches = dispatch(func(e Ecosystem) string { return e.Install(quoteWords(e.Deps)) })
	}
	steps = append(steps, deps)

	pkgs := BuildStep{Phase: PhaseInstallPackages}
	if words := quoteWords(NormalizePackages(in.Packages)); len(words) > 0 {
		pkgs.Branches = dispatch(func(e Ecosystem) string { return e.Install(words) })
	}
	steps = append(steps, pkgs)

	steps = append(steps, BuildStep{Phase: PhaseInit, Commands: hookCommands(in.InitHooks)})

	return steps
}

func dispatch(run func(Ecosystem) string) []Branch {
	branches := make([]Branch, 0, len(ecosystems))
	for _, e := range ecosystems {
		branches = append(branches, Branch{Ecosystem: e.ID, Detect: e.Detect, Run: run(e)})
	}
	return branches
}

// NormalizePackages returns the distinct non-empty package names, sorted.
func NormalizePackages(pkgs []string) []string {
	var out []string
	for _, p := range pkgs {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// hookCommands trims each hook and drops a trailing ';'.
func hookCommands(hooks []string) []string {
	var out []string
	for _, h := range hooks {
		h = strings.TrimSpace(h)
		h = strings.TrimSpace(strings.TrimSuffix(h, ";"))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

func quoteWords(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = quoteWord(w)
	}
	return out
}

func quoteWord(w string) string {
	if safeWord.MatchString(w) {
		return w
	}
	if q, err := syntax.Quote(w, syntax.LangPOSIX); err == nil {
		return q
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
