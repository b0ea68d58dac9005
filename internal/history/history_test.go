// SPDX-License-Identifier: MPL-2.0

package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xz-dev/distrobox-plus/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_BeginFinishRecent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	s.now = testutil.NewFakeClock(time.Time{}).AutoAdvance(time.Second).Now
	ctx := t.Context()

	okID, err := s.Begin(ctx, Attempt{Name: "dev", Fingerprint: "sha256:a", Tag: "dev:latest", Builder: "buildah"})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.Finish(ctx, okID, StatusSucceeded, ""); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	failID, err := s.Begin(ctx, Attempt{Name: "dev", Fingerprint: "sha256:b", Tag: "dev:latest", Builder: "podman"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(ctx, failID, StatusFailed, "exit status 100"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Begin(ctx, Attempt{Name: "other", Fingerprint: "sha256:c", Tag: "other:latest", Builder: "docker"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, "dev", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	want := []Attempt{
		{ID: failID, Name: "dev", Fingerprint: "sha256:b", Tag: "dev:latest", Builder: "podman", Status: StatusFailed, Error: "exit status 100"},
		{ID: okID, Name: "dev", Fingerprint: "sha256:a", Tag: "dev:latest", Builder: "buildah", Status: StatusSucceeded},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Attempt{}, "StartedAt", "EndedAt")); diff != "" {
		t.Errorf("Recent(dev) mismatch (-want +got):\n%s", diff)
	}
	if !got[0].EndedAt.After(got[0].StartedAt) {
		t.Errorf("EndedAt %v not after StartedAt %v", got[0].EndedAt, got[0].StartedAt)
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Name != "other" || all[0].Status != StatusRunning {
		t.Errorf("Recent(all) = %+v", all)
	}
	if !all[0].EndedAt.IsZero() {
		t.Errorf("running attempt has EndedAt %v", all[0].EndedAt)
	}

	limited, err := s.Recent(ctx, "", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Recent(limit 1) = %d rows, %v", len(limited), err)
	}
}

func TestStore_FinishUnknown(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	if err := s.Finish(t.Context(), 42, StatusFailed, "boom"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Begin(t.Context(), Attempt{Name: "dev", Fingerprint: "sha256:a", Tag: "dev:latest", Builder: "buildah"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	got, err := s.Recent(t.Context(), "dev", 0)
	if err != nil || len(got) != 1 {
		t.Errorf("Recent() after reopen = %v, %v", got, err)
	}
}

func TestNop(t *testing.T) {
	t.Parallel()

	var r Recorder = Nop{}
	id, err := r.Begin(t.Context(), Attempt{Name: "dev"})
	if err != nil || id != 0 {
		t.Errorf("Nop.Begin() = %d, %v", id, err)
	}
	if err := r.Finish(t.Context(), id, StatusSucceeded, ""); err != nil {
		t.Errorf("Nop.Finish() error = %v", err)
	}
}
