// SPDX-License-Identifier: MPL-2.0

package intercept

import (
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Stub is one dispatcher script placed in the sandbox directory.
type Stub struct {
	// Name is the file name, which is the command name it shadows.
	Name string
	// Script is the complete shell script.
	Script string
}

// Stubs returns the dispatcher table for commands: one ToolName-<command>
// stub per command that re-enters self, plus a ToolName router that sends
// the same commands to self and everything else to realTool. An empty
// realTool makes the router fail with exit status 127 for unknown commands.
//
// Every script is parsed before it is returned.
func Stubs(self, realTool string, commands []string) ([]Stub, error) {
	quotedSelf, err := quote(self)
	if err != nil {
		return nil, err
	}

	names := slices.Clone(commands)
	slices.Sort(names)
	names = slices.Compact(names)

	stubs := make([]Stub, 0, len(names)+1)
	for _, cmd := range names {
		if cmd == "" || strings.ContainsAny(cmd, "/ \t\n") {
			return nil, fmt.Errorf("invalid command name %q", cmd)
		}
		quotedCmd, err := quote(cmd)
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, Stub{
			Name:   ToolName + "-" + cmd,
			Script: fmt.Sprintf("#!/bin/sh\nexec %s %s \"$@\"\n", quotedSelf, quotedCmd),
		})
	}

	router, err := routerScript(quotedSelf, realTool, names)
	if err != nil {
		return nil, err
	}
	stubs = append(stubs, Stub{Name: ToolName, Script: router})

	for _, s := range stubs {
		if err := validateScript(s); err != nil {
			return nil, err
		}
	}
	return stubs, nil
}

func routerScript(quotedSelf, realTool string, commands []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("case \"$1\" in\n")

	if len(commands) > 0 {
		patterns := make([]string, 0, len(commands))
		for _, cmd := range commands {
			q, err := quote(cmd)
			if err != nil {
				return "", err
			}
			patterns = append(patterns, q)
		}
		fmt.Fprintf(&sb, "%s)\n", strings.Join(patterns, "|"))
		fmt.Fprintf(&sb, "\texec %s \"$@\"\n", quotedSelf)
		sb.WriteString("\t;;\n")
	}

	sb.WriteString("*)\n")
	if realTool == "" {
		fmt.Fprintf(&sb, "\techo '%s: real %s not found in PATH' >&2\n", "distrobox-boost", ToolName)
		sb.WriteString("\texit 127\n")
	} else {
		quotedTool, err := quote(realTool)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "\texec %s \"$@\"\n", quotedTool)
	}
	sb.WriteString("\t;;\n")
	sb.WriteString("esac\n")
	return sb.String(), nil
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("cannot quote %q for a shell script: %w", s, err)
	}
	return q, nil
}

func validateScript(s Stub) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(s.Script), s.Name); err != nil {
		return fmt.Errorf("generated stub %s does not parse: %w", s.Name, err)
	}
	return nil
}
