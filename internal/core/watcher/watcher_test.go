// # internal/core/watcher/watcher_test.go
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"contribs/internal/core/config"
)

func testScan() config.Scan {
	return config.Scan{
		Extensions:   []string{".py", ".pyi"},
		ExcludeDirs:  []string{"exclude_dir", "__pycache__"},
		ExcludeFiles: []string{"*_pb2.py"},
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, testScan(), nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_InvalidGlob(t *testing.T) {
	scan := testScan()
	scan.ExcludeDirs = []string{"["}
	if _, err := NewWatcher(time.Millisecond, scan, func([]string) {}); err == nil {
		t.Fatal("expected error for invalid exclude pattern")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, testScan(), func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "mod.py")
	if err := os.WriteFile(testFile, []byte("import os\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	// Excluded and non-Python files stay quiet.
	for _, name := range []string{"api_pb2.py", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("unexpected change batch %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	// New directories are watched and their files reported.
	subdir := filepath.Join(tmpDir, "pkg")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "nested.py")
	if err := os.WriteFile(subFile, []byte("import sys\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)

	if err := os.Remove(testFile); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)
}

func TestWatcher_ContentHashing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "hash_target.py")
	content := []byte("import os\nos.getcwd()\n")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, testScan(), func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	// Same bytes as when the watch started.
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("received unexpected event for identical content: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(testFile, []byte("import sys\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)
}

func TestWatcher_ExcludedDirNotWatched(t *testing.T) {
	tmpDir := t.TempDir()
	excluded := filepath.Join(tmpDir, "exclude_dir")
	if err := os.MkdirAll(excluded, 0o755); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, testScan(), func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(excluded, "skip.py"), []byte("import os\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changedFiles:
		t.Errorf("unexpected change batch %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, testScan(), func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if !w.shouldExcludeFile("main.go") {
		t.Fatal("expected non-Python files to be excluded")
	}
	if w.shouldExcludeFile("/repo/mod.PY") {
		t.Fatal("expected extension match to ignore case")
	}
	if !w.shouldExcludeFile("/repo/api_pb2.py") {
		t.Fatal("expected exclude glob to apply to the base name")
	}
}
