// Package progress tracks per-task outcomes in a single shared file that
// every worker process updates and any reader can snapshot at any time.
//
// Writers hold an advisory flock on a sidecar file around each
// read-modify-write, and the data file itself is replaced with an atomic
// rename, so concurrent writers never corrupt each other's entries and
// readers never observe a torn file.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

// fileData is the on-disk shape of the progress file.
type fileData struct {
	RunID     string                 `json:"run_id"`
	StartedAt time.Time              `json:"started_at"`
	Total     int                    `json:"total_tasks"`
	Tasks     map[string]models.Task `json:"tasks"`
}

// Summary holds aggregate counts derived from the progress records. It is
// recomputed on every snapshot and never persisted as authoritative state.
type Summary struct {
	Total     int
	Pending   int
	Claimed   int
	Completed int
	Failed    int
}

// PercentComplete returns the share of tasks in a terminal state, 0-100.
func (s Summary) PercentComplete() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Completed+s.Failed) * 100 / float64(s.Total)
}

// Snapshot is a point-in-time view of the shared progress state.
type Snapshot struct {
	RunID     string
	StartedAt time.Time
	Records   []models.Task
	Summary   Summary
}

// Record returns the snapshot entry for a task ID, if present.
func (s *Snapshot) Record(id string) (models.Task, bool) {
	for _, rec := range s.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.Task{}, false
}

// Store reads and writes the shared progress file.
type Store struct {
	path string
	lk   *flock.Flock
}

// NewStore creates a Store for the progress file at path. The flock guards
// the read-modify-write cycle; it is a sidecar because the data file itself
// is swapped out by rename on every write.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lk:   flock.New(path + ".lock"),
	}
}

// Path returns the progress file location.
func (s *Store) Path() string {
	return s.path
}

// Init writes a fresh progress file with every task pending. When
// keepTerminal is set, completed and failed entries from a prior run's file
// are preserved so a re-run only touches unfinished work.
func (s *Store) Init(runID string, tasks []models.Task, keepTerminal bool) error {
	if err := s.lk.Lock(); err != nil {
		return fmt.Errorf("locking progress file: %w", err)
	}
	defer s.lk.Unlock()

	var prior map[string]models.Task
	if keepTerminal {
		old := s.load()
		prior = old.Tasks
	}

	data := fileData{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Total:     len(tasks),
		Tasks:     make(map[string]models.Task, len(tasks)),
	}
	for _, t := range tasks {
		entry := models.Task{
			ID:        t.ID,
			Path:      t.Path,
			State:     models.TaskPending,
			UpdatedAt: data.StartedAt,
		}
		if keepTerminal {
			if old, ok := prior[t.ID]; ok && old.State.Terminal() {
				entry = old
			}
		}
		data.Tasks[t.ID] = entry
	}

	return s.write(data)
}

// Record writes the state of a single task. It is safe to call concurrently
// from any worker process; entries for other tasks are never disturbed. A
// record for a task missing from the file is inserted rather than rejected.
func (s *Store) Record(id string, state models.TaskState, worker, detail string) error {
	if !state.Valid() {
		return fmt.Errorf("invalid task state %q", state)
	}

	if err := s.lk.Lock(); err != nil {
		return fmt.Errorf("locking progress file: %w", err)
	}
	defer s.lk.Unlock()

	data := s.load()

	entry := data.Tasks[id]
	entry.ID = id
	entry.State = state
	entry.Worker = worker
	entry.Error = detail
	entry.UpdatedAt = time.Now().UTC()
	data.Tasks[id] = entry

	if len(data.Tasks) > data.Total {
		data.Total = len(data.Tasks)
	}

	return s.write(data)
}

// Snapshot returns the current progress records and derived summary. It may
// be called concurrently with writers from any process; it never blocks them
// beyond the shared read lock.
func (s *Store) Snapshot() (*Snapshot, error) {
	if err := s.lk.RLock(); err != nil {
		return nil, fmt.Errorf("locking progress file: %w", err)
	}
	defer s.lk.Unlock()

	data := s.load()

	snap := &Snapshot{
		RunID:     data.RunID,
		StartedAt: data.StartedAt,
		Records:   make([]models.Task, 0, len(data.Tasks)),
	}
	for id, rec := range data.Tasks {
		rec.ID = id
		// Entries from an interrupted or older run may carry states this
		// version does not know; treat them as pending rather than failing.
		if !rec.State.Valid() {
			rec.State = models.TaskPending
		}
		snap.Records = append(snap.Records, rec)
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].ID < snap.Records[j].ID })

	snap.Summary.Total = len(snap.Records)
	for _, rec := range snap.Records {
		switch rec.State {
		case models.TaskClaimed:
			snap.Summary.Claimed++
		case models.TaskCompleted:
			snap.Summary.Completed++
		case models.TaskFailed:
			snap.Summary.Failed++
		default:
			snap.Summary.Pending++
		}
	}
	return snap, nil
}

// Exists reports whether the progress file has been initialized.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// load reads the progress file, tolerating absence and corruption: a missing
// or unparsable file yields an empty record set, so a partially-written
// prior run degrades to pending instead of aborting the caller.
func (s *Store) load() fileData {
	data := fileData{Tasks: make(map[string]models.Task)}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[progress] reading %s: %v", s.path, err)
		}
		return data
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("[progress] unparsable progress file %s, starting empty: %v", s.path, err)
		return fileData{Tasks: make(map[string]models.Task)}
	}
	if data.Tasks == nil {
		data.Tasks = make(map[string]models.Task)
	}
	return data
}

// write replaces the progress file atomically via a temp file and rename.
func (s *Store) write(data fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating progress directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".progress-*")
	if err != nil {
		return fmt.Errorf("creating temp progress file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing progress: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing progress file: %w", err)
	}
	return nil
}
