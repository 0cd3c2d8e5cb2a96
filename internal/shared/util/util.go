package util

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans a path into the slash-separated, relative form
// exclude patterns are matched against.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// ContainsPathSeparator returns true when value includes either slash separator.
func ContainsPathSeparator(value string) bool {
	return strings.ContainsAny(value, `/\`)
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}
