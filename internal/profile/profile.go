// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Baked keys. Every other key is kept as an opaque Option.
const (
	KeyImage        = "image"
	KeyPackages     = "additional_packages"
	KeyPreInitHooks = "pre_init_hooks"
	KeyInitHooks    = "init_hooks"
)

// maxNameLen keeps the name usable as an image repository and a directory.
const maxNameLen = 128

// nameRe is the path component grammar of image references.
var nameRe = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*$`)

var (
	// ErrInvalidName is returned when a Name cannot be used as a directory
	// name or as the repository of its image tag.
	ErrInvalidName = errors.New("invalid environment name")
	// ErrInvalidEnvironment is the sentinel wrapped by every parse and encode failure.
	ErrInvalidEnvironment = errors.New("invalid environment configuration")
)

type (
	// Name identifies an environment. It equals the directory the
	// configuration is stored in and is never read from file content.
	Name string

	// Option is a non-baked key=value pair, kept verbatim and in order.
	Option struct {
		Key   string `yaml:"key"`
		Value string `yaml:"value"`
	}

	// Environment is one stored environment configuration.
	Environment struct {
		Name         Name     `yaml:"name"`
		Image        string   `yaml:"image"`
		Packages     []string `yaml:"additional_packages,omitempty"`
		PreInitHooks []string `yaml:"pre_init_hooks,omitempty"`
		InitHooks    []string `yaml:"init_hooks,omitempty"`
		Options      []Option `yaml:"options,omitempty"`
	}

	// ParseError reports a problem at a specific line.
	ParseError struct {
		Source string
		Line   int
		Msg    string
	}
)

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrInvalidEnvironment }

// Validate rejects names that cannot be both a directory name and the
// repository of the image tag: lowercase letters and digits, separated by
// '.', '_', '__' or runs of '-'.
func (n Name) Validate() error {
	s := string(n)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsAny(s, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, s)
	case strings.HasPrefix(s, "-"):
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidName, s)
	case len(s) > maxNameLen:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, s, maxNameLen)
	case !nameRe.MatchString(s):
		return fmt.Errorf("%w: %q must be lowercase letters and digits, separated by '.', '_' or '-'", ErrInvalidName, s)
	}
	return nil
}

func (n Name) String() string { return string(n) }

// Validate checks the fields a build needs.
func (e *Environment) Validate() error {
	if err := e.Name.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Image) == "" {
		return fmt.Errorf("%w: %s: no image declared", ErrInvalidEnvironment, e.Name)
	}
	for _, h := range append(append([]string(nil), e.PreInitHooks...), e.InitHooks...) {
		if strings.ContainsAny(h, "\n\r") {
			return fmt.Errorf("%w: %s: hook %q spans several lines", ErrInvalidEnvironment, e.Name, h)
		}
	}
	return nil
}
