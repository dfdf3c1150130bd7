package task

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("content\n"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testTree(t *testing.T) (root, lockDir string) {
	t.Helper()
	root = filepath.Join(t.TempDir(), "docs")
	lockDir = filepath.Join(root, ".locks")

	writeFile(t, filepath.Join(root, "guide.md"))
	writeFile(t, filepath.Join(root, "api", "client.md"))
	writeFile(t, filepath.Join(root, "api", "server.md"))
	writeFile(t, filepath.Join(root, "index.md"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, ".hidden.md"))
	writeFile(t, filepath.Join(lockDir, "stray.md"))
	return root, lockDir
}

func TestEnumerate(t *testing.T) {
	root, lockDir := testTree(t)

	e := NewEnumerator(root, []string{".md"}, []string{"index.md"}, lockDir)
	tasks, err := e.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}

	want := []string{"api/client.md", "api/server.md", "guide.md"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Enumerate ids = %v, want %v", ids, want)
	}
}

func TestEnumerateDeterministic(t *testing.T) {
	root, lockDir := testTree(t)
	e := NewEnumerator(root, []string{".md"}, []string{"index.md"}, lockDir)

	first, err := e.Enumerate()
	if err != nil {
		t.Fatalf("first Enumerate: %v", err)
	}
	second, err := e.Enumerate()
	if err != nil {
		t.Fatalf("second Enumerate: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("two enumerations of a static tree should be identical")
	}
}

func TestEnumerateMissingRoot(t *testing.T) {
	e := NewEnumerator(filepath.Join(t.TempDir(), "missing"), []string{".md"}, nil, "")
	if _, err := e.Enumerate(); err == nil {
		t.Fatal("expected error for missing content root")
	}
}

func TestEnumerateRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.md")
	writeFile(t, path)

	e := NewEnumerator(path, []string{".md"}, nil, "")
	if _, err := e.Enumerate(); err == nil {
		t.Fatal("expected error when content root is a file")
	}
}

func TestEnumerateNoExtensionsMatchesAll(t *testing.T) {
	root, lockDir := testTree(t)
	e := NewEnumerator(root, nil, []string{"index.md"}, lockDir)

	tasks, err := e.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	// guide.md, api/client.md, api/server.md plus notes.txt
	if len(tasks) != 4 {
		t.Errorf("got %d tasks, want 4", len(tasks))
	}
}

func TestPathForID(t *testing.T) {
	root, lockDir := testTree(t)
	e := NewEnumerator(root, []string{".md"}, []string{"index.md"}, lockDir)

	tasks, err := e.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	for _, task := range tasks {
		path, err := e.PathForID(task.ID)
		if err != nil {
			t.Fatalf("PathForID(%q): %v", task.ID, err)
		}
		if path != task.Path {
			t.Errorf("PathForID(%q) = %q, want %q", task.ID, path, task.Path)
		}
	}
}
