// Package lock implements the atomic file-claim protocol that grants a
// worker exclusive processing rights over a task.
//
// A claim creates a lock file with O_CREATE|O_EXCL, so the creation step
// itself is the single point of truth: at most one claimer can ever win, and
// no torn or partial lock is visible to a concurrent claimer. The existence
// of a lock file is both the concurrency control and the in-progress
// indicator for monitoring.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const lockSuffix = ".lock"

// Record describes a live lock.
type Record struct {
	// Task is the identifier of the locked task.
	Task string
	// Owner is the worker ID that created the lock.
	Owner string
	// AcquiredAt is when the lock was created.
	AcquiredAt time.Time
	// Path is the lock file location.
	Path string
}

// Age returns how long the lock has been held.
func (r Record) Age() time.Duration {
	return time.Since(r.AcquiredAt)
}

// Manager provides claim and release operations over a lock namespace
// directory. Each task's lock is independent; no global lock is ever held.
type Manager struct {
	dir string
}

// NewManager creates a Manager for the given lock namespace directory.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the lock namespace directory.
func (m *Manager) Dir() string {
	return m.dir
}

// EnsureDir creates the lock namespace directory if it does not exist.
func (m *Manager) EnsureDir() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("creating lock directory %s: %w", m.dir, err)
	}
	return nil
}

// Claim attempts to create the lock record for the task. It returns true iff
// this caller now owns the lock, false if another owner already holds it.
func (m *Manager) Claim(task, owner string) (bool, error) {
	path := m.lockPath(task)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("claiming %s: %w", task, err)
	}

	record := owner + "\n" + time.Now().UTC().Format(time.RFC3339Nano) + "\n"
	if _, err := f.WriteString(record); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("writing lock record for %s: %w", task, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("closing lock record for %s: %w", task, err)
	}
	return true, nil
}

// Held reports whether a live lock exists for the task, without creating one.
func (m *Manager) Held(task string) (bool, error) {
	_, err := os.Stat(m.lockPath(task))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking lock for %s: %w", task, err)
}

// Release removes the task's lock if it is owned by the caller. Releasing an
// already-released lock is a no-op: workers call Release unconditionally on
// both the success and failure paths.
func (m *Manager) Release(task, owner string) error {
	path := m.lockPath(task)

	rec, err := m.readRecord(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading lock record for %s: %w", task, err)
	}

	if rec.Owner != "" && rec.Owner != owner {
		log.Printf("[lock] not releasing %s: held by %s, not %s", task, rec.Owner, owner)
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("releasing %s: %w", task, err)
	}
	return nil
}

// Reclaim removes the task's lock regardless of owner. This is the
// administrative path for stale locks left by crashed workers.
func (m *Manager) Reclaim(task string) error {
	if err := os.Remove(m.lockPath(task)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reclaiming %s: %w", task, err)
	}
	return nil
}

// IsStale reports whether the task's lock is older than maxAge. A missing
// lock is not stale.
func (m *Manager) IsStale(task string, maxAge time.Duration) (bool, error) {
	rec, err := m.readRecord(m.lockPath(task))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading lock record for %s: %w", task, err)
	}
	return rec.Age() > maxAge, nil
}

// List returns the live lock records, sorted by task identifier.
func (m *Manager) List() ([]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading lock directory %s: %w", m.dir, err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockSuffix) {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		rec, err := m.readRecord(path)
		if err != nil {
			log.Printf("[lock] skipping unreadable lock %s: %v", path, err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Task < records[j].Task })
	return records, nil
}

// Count returns the number of live locks, which equals the number of tasks
// currently in progress.
func (m *Manager) Count() (int, error) {
	records, err := m.List()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Sweep removes every lock in the namespace and returns how many were
// removed. The coordinator sweeps at the very start and very end of a run: a
// run begins from a clean slate and ends with no legitimate in-progress work.
func (m *Manager) Sweep() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading lock directory %s: %w", m.dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockSuffix) {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("removing lock %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// lockPath returns the lock file path for a task. Task identifiers contain
// path separators, so they are escaped into a flat, collision-free filename.
func (m *Manager) lockPath(task string) string {
	return filepath.Join(m.dir, url.PathEscape(task)+lockSuffix)
}

// readRecord parses a lock file into a Record. Lock files written by older
// tooling may be missing or malformed fields; the file mtime is used as the
// acquisition time when the timestamp line is unusable.
func (m *Manager) readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Path: path}

	name := strings.TrimSuffix(filepath.Base(path), lockSuffix)
	if task, err := url.PathUnescape(name); err == nil {
		rec.Task = task
	} else {
		rec.Task = name
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) > 0 {
		rec.Owner = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		if ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(lines[1])); err == nil {
			rec.AcquiredAt = ts
		}
	}
	if rec.AcquiredAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			rec.AcquiredAt = info.ModTime()
		}
	}
	return rec, nil
}
