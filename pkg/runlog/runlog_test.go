package runlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_WriteGetRoundtrip(t *testing.T) {
	s := NewStore(t.TempDir())

	ended := time.Now().UTC().Truncate(time.Second)
	record := &RunRecord{
		RunID:         NewRunID(),
		State:         RunStateSuccess,
		ManifestPath:  "run.yaml",
		NewNodes:      4,
		JobsSubmitted: 3,
		FieldsSet:     5,
		CreatedAt:     ended.Add(-time.Minute),
		EndedAt:       &ended,
	}
	if err := s.Write(record); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := s.Get(record.RunID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.State != RunStateSuccess || got.NewNodes != 4 || got.JobsSubmitted != 3 {
		t.Fatalf("record = %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Fatalf("ended_at = %v, want %v", got.EndedAt, ended)
	}
}

func TestStore_WriteValidation(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Write(nil); err == nil {
		t.Fatal("nil record must be rejected")
	}
	if err := s.Write(&RunRecord{RunID: "  "}); err == nil {
		t.Fatal("blank run id must be rejected")
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir())

	base := time.Now().UTC()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := s.Write(&RunRecord{
			RunID:     id,
			State:     RunStateRunning,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Write(%s) error: %v", id, err)
		}
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[2].RunID != "run-a" {
		t.Fatalf("order = %s, %s, %s", runs[0].RunID, runs[1].RunID, runs[2].RunID)
	}
}

func TestStore_ListSkipsJunk(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	if err := s.Write(&RunRecord{RunID: "run-a", State: RunStateSuccess, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	// A stray file and an empty directory at the root are ignored.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-a" {
		t.Fatalf("runs = %+v", runs)
	}
}
