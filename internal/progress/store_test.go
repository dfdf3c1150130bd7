package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

func testTasks(n int) []models.Task {
	tasks := make([]models.Task, n)
	for i := range tasks {
		tasks[i] = models.Task{
			ID:   fmt.Sprintf("doc-%03d.md", i),
			Path: fmt.Sprintf("/content/doc-%03d.md", i),
		}
	}
	return tasks
}

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "progress.json"))
}

func TestInitAndSnapshot(t *testing.T) {
	s := newStore(t)

	if err := s.Init("run-1", testTasks(3), false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.RunID != "run-1" {
		t.Errorf("RunID = %q, want %q", snap.RunID, "run-1")
	}
	if snap.Summary.Total != 3 || snap.Summary.Pending != 3 {
		t.Errorf("Summary = %+v, want 3 pending of 3", snap.Summary)
	}
	if snap.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
}

func TestRecordTransitions(t *testing.T) {
	s := newStore(t)
	if err := s.Init("run-1", testTasks(2), false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := s.Record("doc-000.md", models.TaskClaimed, "worker-1", ""); err != nil {
		t.Fatalf("Record claimed: %v", err)
	}
	if err := s.Record("doc-000.md", models.TaskCompleted, "worker-1", ""); err != nil {
		t.Fatalf("Record completed: %v", err)
	}
	if err := s.Record("doc-001.md", models.TaskFailed, "worker-2", "processor exited 1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.Summary.Completed != 1 || snap.Summary.Failed != 1 || snap.Summary.Pending != 0 {
		t.Errorf("Summary = %+v", snap.Summary)
	}

	rec, ok := snap.Record("doc-001.md")
	if !ok {
		t.Fatal("doc-001.md missing from snapshot")
	}
	if rec.Worker != "worker-2" || rec.Error != "processor exited 1" {
		t.Errorf("record = %+v", rec)
	}
}

func TestRecordUnknownTaskInserted(t *testing.T) {
	s := newStore(t)
	if err := s.Init("run-1", testTasks(1), false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := s.Record("late.md", models.TaskCompleted, "worker-1", ""); err != nil {
		t.Fatalf("Record unknown task: %v", err)
	}

	snap, _ := s.Snapshot()
	if snap.Summary.Total != 2 {
		t.Errorf("Total = %d, want 2 after insert", snap.Summary.Total)
	}
}

func TestRecordRejectsInvalidState(t *testing.T) {
	s := newStore(t)
	if err := s.Record("x.md", models.TaskState("bogus"), "w", ""); err == nil {
		t.Fatal("expected error for invalid state")
	}
}

func TestRecordWithoutInitCreatesFile(t *testing.T) {
	s := newStore(t)

	if err := s.Record("x.md", models.TaskCompleted, "worker-1", ""); err != nil {
		t.Fatalf("Record on missing file: %v", err)
	}
	if !s.Exists() {
		t.Error("progress file should exist after first Record")
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	s := newStore(t)

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot on missing file: %v", err)
	}
	if snap.Summary.Total != 0 {
		t.Errorf("Total = %d, want 0", snap.Summary.Total)
	}
	if snap.Summary.PercentComplete() != 100 {
		t.Errorf("empty run should be vacuously 100%% complete")
	}
}

func TestSnapshotToleratesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	s := NewStore(path)
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot on garbage file: %v", err)
	}
	if snap.Summary.Total != 0 {
		t.Errorf("Total = %d, want 0 for unparsable file", snap.Summary.Total)
	}
}

func TestSnapshotNormalizesUnknownState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	content := `{"run_id":"old","tasks":{"a.md":{"id":"a.md","state":"reticulating"}}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := NewStore(path).Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	rec, ok := snap.Record("a.md")
	if !ok {
		t.Fatal("a.md missing")
	}
	if rec.State != models.TaskPending {
		t.Errorf("unknown state normalized to %q, want pending", rec.State)
	}
}

func TestInitResumeKeepsTerminal(t *testing.T) {
	s := newStore(t)
	tasks := testTasks(3)

	if err := s.Init("run-1", tasks, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Record("doc-000.md", models.TaskCompleted, "worker-1", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("doc-001.md", models.TaskClaimed, "worker-2", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Second run with resume: terminal entries survive, non-terminal reset.
	if err := s.Init("run-2", tasks, true); err != nil {
		t.Fatalf("resume Init: %v", err)
	}

	snap, _ := s.Snapshot()
	if snap.RunID != "run-2" {
		t.Errorf("RunID = %q, want run-2", snap.RunID)
	}
	if snap.Summary.Completed != 1 {
		t.Errorf("Completed = %d, want 1 preserved", snap.Summary.Completed)
	}
	if snap.Summary.Pending != 2 {
		t.Errorf("Pending = %d, want 2 (claimed entry reset)", snap.Summary.Pending)
	}
}

func TestInitWithoutResumeResetsAll(t *testing.T) {
	s := newStore(t)
	tasks := testTasks(2)

	if err := s.Init("run-1", tasks, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Record("doc-000.md", models.TaskCompleted, "worker-1", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Init("run-2", tasks, false); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	snap, _ := s.Snapshot()
	if snap.Summary.Pending != 2 {
		t.Errorf("Pending = %d, want 2 after fresh init", snap.Summary.Pending)
	}
}

func TestConcurrentWritersDisjointTasks(t *testing.T) {
	s := newStore(t)
	tasks := testTasks(32)
	if err := s.Init("run-1", tasks, false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(id string, n int) {
			defer wg.Done()
			worker := fmt.Sprintf("worker-%d", n%4)
			if err := s.Record(id, models.TaskClaimed, worker, ""); err != nil {
				t.Errorf("Record claimed %s: %v", id, err)
				return
			}
			if err := s.Record(id, models.TaskCompleted, worker, ""); err != nil {
				t.Errorf("Record completed %s: %v", id, err)
			}
		}(task.ID, i)
	}
	wg.Wait()

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Summary.Completed != len(tasks) {
		t.Errorf("Completed = %d, want %d: concurrent writers corrupted entries",
			snap.Summary.Completed, len(tasks))
	}
}

func TestPercentComplete(t *testing.T) {
	tests := []struct {
		summary Summary
		want    float64
	}{
		{Summary{Total: 0}, 100},
		{Summary{Total: 4, Completed: 1, Failed: 1, Pending: 2}, 50},
		{Summary{Total: 4, Completed: 4}, 100},
		{Summary{Total: 4, Pending: 4}, 0},
	}

	for _, tt := range tests {
		if got := tt.summary.PercentComplete(); got != tt.want {
			t.Errorf("PercentComplete(%+v) = %v, want %v", tt.summary, got, tt.want)
		}
	}
}
