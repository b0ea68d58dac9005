// SPDX-License-Identifier: MPL-2.0

// Package argv rewrites the argument vector of a distrobox create call so it
// uses a prebuilt image instead of installing packages and running hooks at
// creation time.
package argv

import "strings"

// EndOfFlags separates create flags from the command run in the container.
// Nothing after it is inspected.
const EndOfFlags = "--"

var (
	// ImageFlags select the image of a create call.
	ImageFlags = []string{"--image", "-i"}

	// NameFlags select the container name of a create call.
	NameFlags = []string{"--name", "-n"}

	// BakedFlags are create flags whose effect is part of the prebuilt image.
	BakedFlags = []string{"--additional-packages", "-ap", "--init-hooks", "--pre-init-hooks"}
)

// Rewrite returns a copy of args that creates from image. Every image flag
// gets image as its value, and "--image <image>" is prepended when there is
// none. Baked flags are dropped along with their values. All other
// arguments keep their relative order.
//
// Rewriting an already rewritten vector with the same image returns it
// unchanged.
func Rewrite(args []string, image string) []string {
	out := make([]string, 0, len(args)+2)
	hasImage := false

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == EndOfFlags {
			out = append(out, args[i:]...)
			break
		}

		if flag, inline, ok := match(arg, ImageFlags); ok {
			hasImage = true
			if inline {
				out = append(out, flag+"="+image)
				continue
			}
			out = append(out, flag, image)
			i++ // old value
			continue
		}

		if _, inline, ok := match(arg, BakedFlags); ok {
			if !inline {
				i++
			}
			continue
		}

		out = append(out, arg)
	}

	if !hasImage {
		out = append([]string{ImageFlags[0], image}, out...)
	}
	return out
}

// FlagValue returns the value of the first of names found in args, in either
// the "--flag value" or the "--flag=value" form.
func FlagValue(args []string, names ...string) (string, bool) {
	for i, arg := range args {
		if arg == EndOfFlags {
			break
		}
		flag, inline, ok := match(arg, names)
		if !ok {
			continue
		}
		if inline {
			return arg[len(flag)+1:], true
		}
		if i+1 < len(args) {
			return args[i+1], true
		}
		return "", false
	}
	return "", false
}

// match reports whether arg is one of flags, either bare or with an inline
// "=value".
func match(arg string, flags []string) (flag string, inline, ok bool) {
	for _, f := range flags {
		if arg == f {
			return f, false, true
		}
		if strings.HasPrefix(arg, f+"=") {
			return f, true, true
		}
	}
	return "", false, false
}
