// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// KeyInclude pulls the entries of other sections into an assemble section.
const KeyInclude = "include"

// ParseAssemble extracts one environment from an assemble file. include=
// entries are expanded in place, recursively. Later image declarations
// override earlier ones, so a section can override an included base.
func ParseAssemble(r io.Reader, source string, name Name) (*Environment, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	sections, err := lex(r, source)
	if err != nil {
		return nil, err
	}
	if len(sections[0].entries) > 0 {
		return nil, &ParseError{Source: source, Line: sections[0].entries[0].line, Msg: "key outside of any section"}
	}

	byName := make(map[string]*section, len(sections))
	var available []string
	for _, s := range sections[1:] {
		byName[s.name] = s
		available = append(available, s.name)
	}

	if _, ok := byName[string(name)]; !ok {
		return nil, &ParseError{
			Source: source,
			Msg:    fmt.Sprintf("section %q not found; available sections: [%s]", name, strings.Join(available, ", ")),
		}
	}

	entries, err := expand(byName, string(name), source, nil)
	if err != nil {
		return nil, err
	}

	return fromEntries(name, source, entries, false)
}

// ParseAssembleFile is ParseAssemble on a file.
func ParseAssembleFile(path string, name Name) (*Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseAssemble(f, path, name)
}

func expand(byName map[string]*section, name, source string, stack []string) ([]entry, error) {
	for _, s := range stack {
		if s == name {
			return nil, &ParseError{Source: source, Msg: fmt.Sprintf("include cycle: %s -> %s", strings.Join(stack, " -> "), name)}
		}
	}
	stack = append(stack, name)

	var out []entry
	for _, e := range byName[name].entries {
		if e.key != KeyInclude {
			out = append(out, e)
			continue
		}
		for _, inc := range strings.Fields(e.value) {
			inc = unquote(inc)
			if _, ok := byName[inc]; !ok {
				return nil, &ParseError{Source: source, Line: e.line, Msg: fmt.Sprintf("included section %q not found", inc)}
			}
			sub, err := expand(byName, inc, source, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}

	return out, nil
}
