// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestComputeFingerprint_Format(t *testing.T) {
	t.Parallel()

	fp := ComputeFingerprint("alpine:latest", Inputs{Packages: []string{"git"}}, DefaultOptions())
	if !strings.HasPrefix(fp.String(), "sha256:") || len(fp.String()) != len("sha256:")+64 {
		t.Errorf("fingerprint %q is not sha256:<64 hex>", fp)
	}
	if len(fp.Short()) != 12 {
		t.Errorf("Short() = %q", fp.Short())
	}
}

func TestComputeFingerprint_Sensitivity(t *testing.T) {
	t.Parallel()

	base := Inputs{Packages: []string{"git"}, PreInitHooks: []string{"echo pre"}, InitHooks: []string{"echo hi"}}
	ref := ComputeFingerprint("alpine:latest", base, DefaultOptions())

	changed := map[string]Fingerprint{
		"image":            ComputeFingerprint("alpine:3.20", base, DefaultOptions()),
		"package added":    ComputeFingerprint("alpine:latest", Inputs{Packages: []string{"git", "vim"}, PreInitHooks: base.PreInitHooks, InitHooks: base.InitHooks}, DefaultOptions()),
		"pre hook":         ComputeFingerprint("alpine:latest", Inputs{Packages: base.Packages, PreInitHooks: []string{"echo other"}, InitHooks: base.InitHooks}, DefaultOptions()),
		"init hook":        ComputeFingerprint("alpine:latest", Inputs{Packages: base.Packages, PreInitHooks: base.PreInitHooks, InitHooks: []string{"echo bye"}}, DefaultOptions()),
		"hook moved":       ComputeFingerprint("alpine:latest", Inputs{Packages: base.Packages, InitHooks: []string{"echo pre", "echo hi"}}, DefaultOptions()),
		"upgrade off":      ComputeFingerprint("alpine:latest", base, Options{InstallDeps: true}),
		"install deps off": ComputeFingerprint("alpine:latest", base, Options{Upgrade: true}),
	}
	for name, fp := range changed {
		if fp == ref {
			t.Errorf("changing %s did not change the fingerprint", name)
		}
	}

	// Hooks differing only by the trailing separator render the same recipe.
	same := ComputeFingerprint("alpine:latest", Inputs{Packages: []string{"git", "git"}, PreInitHooks: []string{" echo pre; "}, InitHooks: base.InitHooks}, DefaultOptions())
	if same != ref {
		t.Error("normalization-equivalent inputs should share a fingerprint")
	}
}

func TestComputeFingerprint_NoFieldAliasing(t *testing.T) {
	t.Parallel()

	a := ComputeFingerprint("img", Inputs{PreInitHooks: []string{"x"}}, DefaultOptions())
	b := ComputeFingerprint("img", Inputs{InitHooks: []string{"x"}}, DefaultOptions())
	if a == b {
		t.Error("a hook moved between phases must change the fingerprint")
	}

	c := ComputeFingerprint("img", Inputs{InitHooks: []string{"ab", "c"}}, DefaultOptions())
	d := ComputeFingerprint("img", Inputs{InitHooks: []string{"a", "bc"}}, DefaultOptions())
	if c == d {
		t.Error("hook boundaries must be part of the encoding")
	}
}

func TestComputeFingerprint_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("package order does not matter", prop.ForAll(
		func(image string, pkgs []string, hooks []string) bool {
			reversed := slices.Clone(pkgs)
			slices.Reverse(reversed)
			a := ComputeFingerprint(image, Inputs{Packages: pkgs, InitHooks: hooks}, DefaultOptions())
			b := ComputeFingerprint(image, Inputs{Packages: reversed, InitHooks: hooks}, DefaultOptions())
			return a == b
		},
		gen.Identifier(),
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("deterministic", prop.ForAll(
		func(image string, pkgs []string, pre []string, post []string) bool {
			in := Inputs{Packages: pkgs, PreInitHooks: pre, InitHooks: post}
			return ComputeFingerprint(image, in, DefaultOptions()) == ComputeFingerprint(image, in, DefaultOptions())
		},
		gen.AlphaString(),
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("a new package changes the fingerprint", prop.ForAll(
		func(pkgs []string, extra string) bool {
			if slices.Contains(pkgs, extra) {
				return true
			}
			a := ComputeFingerprint("img", Inputs{Packages: pkgs}, DefaultOptions())
			b := ComputeFingerprint("img", Inputs{Packages: append(slices.Clone(pkgs), extra)}, DefaultOptions())
			return a != b
		},
		gen.SliceOf(gen.Identifier()),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
