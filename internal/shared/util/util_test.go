package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./pkg/mod.py  ", expected: "pkg/mod.py"},
		{name: "Relative", input: "pkg/../tests/test_x.py", expected: "tests/test_x.py"},
		{name: "Backslashes", input: `pkg\sub\mod.py`, expected: "pkg/sub/mod.py"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestContainsPathSeparator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "Unix", value: "tests/*.py", expected: true},
		{name: "Windows", value: `tests\*.py`, expected: true},
		{name: "Flat", value: "*_pb2.py", expected: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ContainsPathSeparator(tc.value); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "loci.json")
	content := []byte(`[{"ident":"os.sep","line":1}]`)

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}
