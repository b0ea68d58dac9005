// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Finding is a problem found in a generated step.
type Finding struct {
	Phase Phase
	Msg   string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Phase, f.Msg)
}

// Lint parses the steps as POSIX shell and reports syntax errors. Hook
// steps are checked one hook at a time, since each hook runs on its own.
func Lint(steps []BuildStep) []Finding {
	var findings []Finding
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))

	for _, s := range steps {
		if len(s.Commands) > 0 {
			for i, c := range s.Commands {
				name := fmt.Sprintf("%s hook %d", s.Phase, i+1)
				if _, err := parser.Parse(strings.NewReader(c), name); err != nil {
					findings = append(findings, Finding{Phase: s.Phase, Msg: err.Error()})
				}
			}
			continue
		}
		script := s.Script()
		if script == "" {
			continue
		}
		if _, err := parser.Parse(strings.NewReader(script), string(s.Phase)); err != nil {
			findings = append(findings, Finding{Phase: s.Phase, Msg: err.Error()})
		}
	}

	return findings
}
