// SPDX-License-Identifier: MPL-2.0

package argv

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const boosted = "mybox:latest"

func TestRewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "replaces spaced image flag",
			args: []string{"--name", "mybox", "--image", "alpine:latest"},
			want: []string{"--name", "mybox", "--image", boosted},
		},
		{
			name: "replaces inline image flag",
			args: []string{"--image=alpine:latest", "--name=mybox"},
			want: []string{"--image=" + boosted, "--name=mybox"},
		},
		{
			name: "replaces short image flag",
			args: []string{"-n", "mybox", "-i", "alpine:latest"},
			want: []string{"-n", "mybox", "-i", boosted},
		},
		{
			name: "inserts missing image flag at the front",
			args: []string{"--name", "mybox", "--yes"},
			want: []string{"--image", boosted, "--name", "mybox", "--yes"},
		},
		{
			name: "strips baked flags in both forms",
			args: []string{
				"--name", "mybox",
				"--additional-packages", "git vim",
				"-ap", "tmux",
				"--init-hooks=echo hi",
				"--pre-init-hooks", "touch /x",
				"--image", "alpine",
			},
			want: []string{"--name", "mybox", "--image", boosted},
		},
		{
			name: "keeps other flags in order",
			args: []string{"--volume", "/a:/b", "-ap", "git", "--nvidia", "--additional-flags", "--env FOO=bar", "-i", "alpine", "--home", "/h"},
			want: []string{"--volume", "/a:/b", "--nvidia", "--additional-flags", "--env FOO=bar", "-i", boosted, "--home", "/h"},
		},
		{
			name: "leaves arguments after end of flags alone",
			args: []string{"--image", "alpine", "--", "--image", "other", "-ap", "git"},
			want: []string{"--image", boosted, "--", "--image", "other", "-ap", "git"},
		},
		{
			name: "inserts before end of flags",
			args: []string{"--name", "mybox", "--", "-i", "x"},
			want: []string{"--image", boosted, "--name", "mybox", "--", "-i", "x"},
		},
		{
			name: "trailing image flag without value",
			args: []string{"--name", "mybox", "--image"},
			want: []string{"--name", "mybox", "--image", boosted},
		},
		{
			name: "trailing baked flag without value",
			args: []string{"--name", "mybox", "--init-hooks"},
			want: []string{"--image", boosted, "--name", "mybox"},
		},
		{
			name: "every image flag is replaced",
			args: []string{"-i", "a", "--image=b"},
			want: []string{"-i", boosted, "--image=" + boosted},
		},
		{
			name: "prefix of a flag is not the flag",
			args: []string{"--images", "x", "--init-hooks-extra"},
			want: []string{"--image", boosted, "--images", "x", "--init-hooks-extra"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{"--image", boosted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := slices.Clone(tt.args)
			got := Rewrite(tt.args, boosted)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rewrite() mismatch (-want +got):\n%s", diff)
			}
			if !slices.Equal(in, tt.args) {
				t.Errorf("Rewrite() modified its input: %q", tt.args)
			}
		})
	}
}

func TestFlagValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		want   string
		wantOk bool
	}{
		{"long spaced", []string{"--yes", "--name", "box"}, "box", true},
		{"long inline", []string{"--name=box"}, "box", true},
		{"short", []string{"-n", "box"}, "box", true},
		{"inline empty", []string{"--name="}, "", true},
		{"first wins", []string{"-n", "a", "--name", "b"}, "a", true},
		{"missing value", []string{"--name"}, "", false},
		{"absent", []string{"--image", "x"}, "", false},
		{"after end of flags", []string{"--", "--name", "box"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := FlagValue(tt.args, NameFlags...)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("FlagValue(%q) = (%q, %v), want (%q, %v)", tt.args, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestRewrite_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	tokens := []string{
		"--image", "-i", "--image=alpine", "-i=fedora",
		"--additional-packages", "-ap", "--init-hooks=echo", "--pre-init-hooks",
		"--name", "mybox", "--volume", "/a:/b", "--yes", "git vim", "--",
	}
	vector := gen.SliceOf(gen.IntRange(0, len(tokens)-1).Map(func(i int) string {
		return tokens[i]
	}))

	properties.Property("rewrite is idempotent", prop.ForAll(
		func(args []string, image string) bool {
			once := Rewrite(args, image)
			return slices.Equal(once, Rewrite(once, image))
		},
		vector,
		gen.Identifier(),
	))

	properties.Property("exactly the image flags carry the image", prop.ForAll(
		func(args []string, image string) bool {
			out := Rewrite(args, image)
			end := slices.Index(out, EndOfFlags)
			if end < 0 {
				end = len(out)
			}
			found := false
			for i := 0; i < end; i++ {
				flag, inline, ok := match(out[i], ImageFlags)
				if !ok {
					if _, _, baked := match(out[i], BakedFlags); baked {
						return false
					}
					continue
				}
				found = true
				if inline && out[i] != flag+"="+image {
					return false
				}
				if !inline {
					if i+1 >= len(out) || out[i+1] != image {
						return false
					}
					i++
				}
			}
			return found
		},
		vector,
		gen.Identifier(),
	))

	properties.Property("name survives rewriting", prop.ForAll(
		func(name string, image string) bool {
			args := []string{"--name", name, "-ap", "git", "--image", "alpine"}
			got, ok := FlagValue(Rewrite(args, image), NameFlags...)
			return ok && got == name
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
