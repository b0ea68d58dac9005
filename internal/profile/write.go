// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Encode writes env as a stored, header-less file that Parse reads back to
// an equal Environment.
func Encode(w io.Writer, env *Environment) error {
	if err := env.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s=%s\n", KeyImage, env.Image)
	if len(env.Packages) > 0 {
		fmt.Fprintf(bw, "%s=%s\n", KeyPackages, strings.Join(env.Packages, " "))
	}
	for _, h := range env.PreInitHooks {
		fmt.Fprintf(bw, "%s=%s\n", KeyPreInitHooks, quoteHook(h))
	}
	for _, h := range env.InitHooks {
		fmt.Fprintf(bw, "%s=%s\n", KeyInitHooks, quoteHook(h))
	}
	for _, o := range env.Options {
		// Multi-line option values are written as continuation lines.
		fmt.Fprintf(bw, "%s=%s\n", o.Key, strings.ReplaceAll(o.Value, "\n", "\n  "))
	}

	return bw.Flush()
}

var hookEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteHook(h string) string {
	return `"` + hookEscaper.Replace(h) + `"`
}
