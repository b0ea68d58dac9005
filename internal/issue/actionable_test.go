// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "build image"},
			expected: "failed to build image",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "load environment", Resource: "mybox"},
			expected: "failed to load environment: mybox",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load environment",
				Resource:  "mybox",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to load environment: mybox: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := NewErrorContext().WithOperation("acquire lock").Wrap(fmt.Errorf("wrapped: %w", sentinel)).BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the sentinel through the cause chain")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	err := &ActionableError{
		Operation:   "build image",
		Resource:    "mybox",
		Suggestions: []string{"inspect the Containerfile", "retry"},
		Cause:       fmt.Errorf("buildah: %w", errors.New("exit status 1")),
	}

	short := err.Format(false)
	if !strings.Contains(short, "\n  • inspect the Containerfile") {
		t.Errorf("Format(false) missing suggestion bullet:\n%s", short)
	}
	if strings.Contains(short, "Error chain:") {
		t.Error("Format(false) should not include the error chain")
	}

	long := err.Format(true)
	if !strings.Contains(long, "Error chain:\n  1. buildah: exit status 1\n  2. exit status 1") {
		t.Errorf("Format(true) has unexpected chain:\n%s", long)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil error")
	}

	ae := NewErrorContext().
		WithIssue(LockTimeoutId).
		WithOperation("acquire build lock").
		WithResource("mybox").
		WithSuggestion("a").
		WithSuggestions("b", "c").
		Build()
	if ae.Issue != LockTimeoutId || ae.Resource != "mybox" || len(ae.Suggestions) != 3 {
		t.Errorf("unexpected ActionableError: %+v", ae)
	}
	if !ae.HasSuggestions() {
		t.Error("HasSuggestions() = false")
	}
}

func TestWrapWithOperation(t *testing.T) {
	t.Parallel()

	if WrapWithOperation(nil, "x") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
	cause := errors.New("boom")
	if got := WrapWithOperation(cause, "run"); !errors.Is(got, cause) {
		t.Error("wrapped error should unwrap to the cause")
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	classified := func(id Id) error {
		return NewErrorContext().WithIssue(id).WithOperation("op").BuildError()
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("x"), ExitGeneric},
		{"unclassified actionable", NewErrorContext().WithOperation("op").BuildError(), ExitGeneric},
		{"config not found", classified(ConfigNotFoundId), ExitConfig},
		{"no builder", classified(NoBuilderAvailableId), ExitUnavailable},
		{"build failed", classified(BuildFailedId), ExitSoftware},
		{"lock timeout", classified(LockTimeoutId), ExitTempFail},
		{"stale lock", classified(StaleLockId), ExitTempFail},
		{"sandbox", classified(InterceptionSetupFailedId), ExitCantCreate},
		{"command not found", classified(CommandNotFoundId), ExitCommandNotFound},
		{"wrapped with fmt", fmt.Errorf("outer: %w", classified(BuildFailedId)), ExitSoftware},
		{
			"classified inside unclassified",
			NewErrorContext().WithOperation("outer").Wrap(classified(NoBuilderAvailableId)).BuildError(),
			ExitUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCodeOf(tt.err); got != tt.want {
				t.Errorf("ExitCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}
