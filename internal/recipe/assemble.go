// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"fmt"
	"strings"
)

// Assemble renders steps on top of baseImage as Containerfile text. Every
// step becomes exactly one RUN instruction, in the given order; empty steps
// become "RUN true" so instruction numbering stays stable.
func Assemble(baseImage string, steps []BuildStep) string {
	var sb strings.Builder

	sb.WriteString("# Generated by distrobox-boost. Do not edit.\n")
	fmt.Fprintf(&sb, "FROM %s\n", baseImage)

	for _, s := range steps {
		sb.WriteString("\n")
		if s.Empty() {
			fmt.Fprintf(&sb, "# %s: nothing to do\n", s.Phase)
			sb.WriteString("RUN true\n")
			continue
		}
		fmt.Fprintf(&sb, "# %s\n", s.Phase)
		fmt.Fprintf(&sb, "RUN %s\n", s.Script())
	}

	return sb.String()
}
