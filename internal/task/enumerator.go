// Package task enumerates the content files a run must process.
package task

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/swarmdoc/pkg/models"
)

// Enumerator produces the set of task identifiers for a content root.
// Enumeration is a pure function of filesystem state: for a static tree,
// every caller (each worker and the coordinator) sees the same ordered set.
type Enumerator struct {
	// Root is the content directory scanned recursively.
	Root string
	// Extensions lists the file extensions that count as tasks (e.g. ".md").
	Extensions []string
	// ExcludeNames lists basenames that never become tasks (e.g. "index.md").
	ExcludeNames []string
	// ExcludeDirs lists directories whose contents are never enumerated.
	// The lock namespace must be listed here when it lives under Root.
	ExcludeDirs []string
}

// NewEnumerator creates an Enumerator for the given root, excluding lockDir.
func NewEnumerator(root string, extensions, excludeNames []string, lockDir string) *Enumerator {
	return &Enumerator{
		Root:         root,
		Extensions:   extensions,
		ExcludeNames: excludeNames,
		ExcludeDirs:  []string{lockDir},
	}
}

// Enumerate walks the content root and returns a deterministic, duplicate-free
// ordered list of tasks. An unreadable root is an error; an unreadable entry
// is logged and skipped.
func (e *Enumerator) Enumerate() ([]models.Task, error) {
	info, err := os.Stat(e.Root)
	if err != nil {
		return nil, fmt.Errorf("content root %s: %w", e.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s: not a directory", e.Root)
	}

	absRoot, err := filepath.Abs(e.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving content root: %w", err)
	}

	excluded := make([]string, 0, len(e.ExcludeDirs))
	for _, d := range e.ExcludeDirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		excluded = append(excluded, abs)
	}

	seen := make(map[string]struct{})
	var tasks []models.Task

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			log.Printf("[enumerate] skipping unreadable entry %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			for _, ex := range excluded {
				if path == ex {
					return fs.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !e.matchExtension(name) {
			return nil
		}
		for _, ex := range e.ExcludeNames {
			if name == ex {
				return nil
			}
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			log.Printf("[enumerate] skipping %s: %v", path, err)
			return nil
		}

		id := filepath.ToSlash(rel)
		if _, ok := seen[id]; ok {
			return nil
		}
		seen[id] = struct{}{}

		tasks = append(tasks, models.Task{
			ID:    id,
			Path:  path,
			State: models.TaskPending,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanning content root %s: %w", e.Root, walkErr)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// PathForID returns the absolute content path for a task identifier.
func (e *Enumerator) PathForID(id string) (string, error) {
	absRoot, err := filepath.Abs(e.Root)
	if err != nil {
		return "", fmt.Errorf("resolving content root: %w", err)
	}
	return filepath.Join(absRoot, filepath.FromSlash(id)), nil
}

// matchExtension reports whether the filename has one of the configured
// extensions. An empty extension list matches everything.
func (e *Enumerator) matchExtension(name string) bool {
	if len(e.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, want := range e.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
