package source

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"contribs/internal/core/config"
	"contribs/internal/shared/util"

	"github.com/gobwas/glob"
)

// Walker finds Python source files under a root.
type Walker struct {
	extensions   map[string]bool
	dirGlobs     []glob.Glob
	fileGlobs    []pathGlob
	maxFileBytes int64
}

// pathGlob matches against the repository-relative path when the pattern
// contains a separator, otherwise against the base name.
type pathGlob struct {
	g        glob.Glob
	fullPath bool
}

// WalkStats counts what a walk saw. FilesSeen includes every regular file,
// matching or not.
type WalkStats struct {
	FilesSeen  int
	Candidates int
	TooLarge   int
	Excluded   int
}

func NewWalker(cfg config.Scan) (*Walker, error) {
	w := &Walker{
		extensions:   make(map[string]bool, len(cfg.Extensions)),
		maxFileBytes: cfg.MaxFileBytes,
	}
	for _, ext := range cfg.Extensions {
		w.extensions[strings.ToLower(ext)] = true
	}
	for _, p := range cfg.ExcludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		w.dirGlobs = append(w.dirGlobs, g)
	}
	for _, p := range cfg.ExcludeFiles {
		full := util.ContainsPathSeparator(p)
		pattern := p
		if full {
			pattern = util.NormalizePatternPath(p)
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		w.fileGlobs = append(w.fileGlobs, pathGlob{g: g, fullPath: full})
	}
	return w, nil
}

// Matches reports whether path (relative to root) is a candidate source
// file by extension and exclude patterns. Size is not checked.
func (w *Walker) Matches(relPath string) bool {
	rel := util.NormalizePatternPath(relPath)
	if !w.extensions[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if w.excludedDir(dir) {
			return false
		}
	}
	return !w.excludedFile(rel)
}

func (w *Walker) excludedDir(name string) bool {
	for _, g := range w.dirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (w *Walker) excludedFile(rel string) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, pg := range w.fileGlobs {
		target := base
		if pg.fullPath {
			target = rel
		}
		if pg.g.Match(target) {
			return true
		}
	}
	return false
}

// Walk calls fn for every candidate file under root in lexical order. The
// walk stops early when ctx is cancelled or fn returns an error.
func (w *Walker) Walk(ctx context.Context, root string, fn func(path string) error) (WalkStats, error) {
	var stats WalkStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != root && w.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		stats.FilesSeen++

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = util.NormalizePatternPath(rel)
		if !w.extensions[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}
		if w.excludedFile(rel) {
			stats.Excluded++
			return nil
		}
		if w.maxFileBytes > 0 {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > w.maxFileBytes {
				stats.TooLarge++
				return nil
			}
		}

		stats.Candidates++
		return fn(path)
	})
	return stats, err
}
