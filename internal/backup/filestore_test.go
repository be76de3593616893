package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/madhatbot/madhat/internal/backup"
)

func newFileStore(t *testing.T) *backup.FileStore {
	t.Helper()
	s, err := backup.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFileStore(t)

	snap := backup.Snapshot{
		"100001": "A",
		"100002": "B",
		"100003": "", // cleared nickname is a valid entry
	}
	if err := s.Save(ctx, "guild-1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "guild-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	t.Parallel()

	s := newFileStore(t)
	got, err := s.Load(context.Background(), "never-saved")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load: expected empty snapshot, got %v", got)
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFileStore(t)

	if err := s.Save(ctx, "g", backup.Snapshot{"1": "old", "2": "stale"}); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := s.Save(ctx, "g", backup.Snapshot{"1": "new"}); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	got, err := s.Load(ctx, "g")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(backup.Snapshot{"1": "new"}, got); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFileStore(t)

	if err := s.Save(ctx, "g", backup.Snapshot{"7": "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "g"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Load(ctx, "g")
	if err != nil {
		t.Fatalf("Load after delete: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load after delete: expected empty snapshot, got %v", got)
	}

	// Deleting again is a no-op, not an error.
	if err := s.Delete(ctx, "g"); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
}

func TestFileStoreRejectsBadMemberID(t *testing.T) {
	t.Parallel()

	s := newFileStore(t)
	err := s.Save(context.Background(), "g", backup.Snapshot{"not-a-snowflake": "x"})
	if err == nil {
		t.Fatal("Save: expected error for non-integer member ID")
	}
}

func TestFileStoreWireFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := backup.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Save(context.Background(), "g", backup.Snapshot{"2": "b", "1": "a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "g.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := `[{"id":1,"nickname":"a"},{"id":2,"nickname":"b"}]`
	if string(data) != want {
		t.Fatalf("wire format mismatch:\nwant %s\ngot  %s", want, data)
	}
}
