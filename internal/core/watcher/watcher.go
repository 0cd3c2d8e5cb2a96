// # internal/core/watcher/watcher.go
package watcher

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"contribs/internal/core/config"
	"contribs/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher reports batches of changed source files after a quiet period.
// Rewrites that leave a file's content unchanged are not reported; removed
// files always are.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	onChange     func([]string)
	callbackMu   sync.Mutex

	pending   map[string]time.Time
	hashes    map[string]uint64
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, scan config.Scan, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs := make([]glob.Glob, 0, len(scan.ExcludeDirs))
	for _, pattern := range scan.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledDirs = append(compiledDirs, g)
	}

	compiledFiles := make([]glob.Glob, 0, len(scan.ExcludeFiles))
	for _, pattern := range scan.ExcludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledFiles = append(compiledFiles, g)
	}

	extFilters := make(map[string]bool, len(scan.Extensions))
	for _, ext := range scan.Extensions {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			extFilters[ext] = true
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extFilters:   extFilters,
		onChange:     onChange,
		pending:      make(map[string]time.Time),
		hashes:       make(map[string]uint64),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path, false); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

// watchRecursive adds every non-excluded directory under root. Existing
// files are hashed so unchanged rewrites stay quiet; when enqueue is set
// they are also reported, which covers files that landed in a new
// directory before it was watched.
func (w *Watcher) watchRecursive(root string, enqueue bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		if w.shouldExcludeFile(path) {
			return nil
		}
		if enqueue {
			w.scheduleChange(path)
			return nil
		}
		if sum, ok := hashFile(path); ok {
			w.pendingMu.Lock()
			w.hashes[path] = sum
			w.pendingMu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name, true); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Remove == fsnotify.Remove ||
				event.Op&fsnotify.Rename == fsnotify.Rename {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		if w.contentChanged(path) {
			paths = append(paths, path)
		}
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// contentChanged updates the stored hash of path. Callers hold pendingMu.
func (w *Watcher) contentChanged(path string) bool {
	sum, ok := hashFile(path)
	if !ok {
		delete(w.hashes, path)
		return true
	}
	prev, seen := w.hashes[path]
	w.hashes[path] = sum
	return !seen || prev != sum
}

func hashFile(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("failed to hash file", "path", path, "error", err)
		}
		return 0, false
	}
	return xxhash.Sum64(data), true
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)
	if len(w.extFilters) > 0 && !w.extFilters[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
