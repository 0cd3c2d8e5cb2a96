package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

// ModulePath derives the dotted module name of file relative to root and
// reports whether file is a package __init__. Leading directories without
// an __init__.py are not part of the package path. It returns "" when file
// is outside root.
func ModulePath(root, file string) (string, bool) {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}

	parts := strings.Split(rel, string(os.PathSeparator))

	packageStart := 0
	for i := 0; i < len(parts)-1; i++ {
		initPath := filepath.Join(root, filepath.Join(parts[:i+1]...), "__init__.py")
		if _, err := os.Stat(initPath); os.IsNotExist(err) {
			packageStart = i + 1
		} else {
			break
		}
	}
	parts = parts[packageStart:]

	last := len(parts) - 1
	parts[last] = strings.TrimSuffix(strings.TrimSuffix(parts[last], ".pyi"), ".py")

	isPackage := false
	if parts[last] == "__init__" {
		parts = parts[:last]
		isPackage = true
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "."), isPackage
}

// PackageRoot climbs from the directory of file while it contains an
// __init__.py and returns the first directory that is not a package.
func PackageRoot(file string) string {
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "__init__.py")); err != nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
