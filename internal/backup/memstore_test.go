package backup_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/madhatbot/madhat/internal/backup"
)

func TestMemStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := backup.NewMemStore()

	snap := backup.Snapshot{"1": "A", "2": ""}
	if err := s.Save(ctx, "g", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's map after Save must not leak into the store.
	snap["1"] = "tampered"

	got, err := s.Load(ctx, "g")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(backup.Snapshot{"1": "A", "2": ""}, got); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestMemStoreDeleteIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := backup.NewMemStore()

	if err := s.Delete(ctx, "never-saved"); err != nil {
		t.Fatalf("Delete on empty store: %v", err)
	}

	if err := s.Save(ctx, "g", backup.Snapshot{"1": "A"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "g"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Load(ctx, "g")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load after delete: expected empty snapshot, got %v", got)
	}
}
