package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	domainerrors "contribs/internal/core/errors"
	"contribs/internal/core/watcher"
	"contribs/internal/data/store"
	"contribs/internal/shared/util"

	"github.com/google/uuid"
)

// Watch keeps the stored contributions of root in step with the file system
// until ctx is done. root is stored as LocalOwner/<base>, the same key
// ScanLocal uses.
func (a *App) Watch(ctx context.Context, root string) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve watch root %q: %w", root, err)
	}

	runID := uuid.NewString()
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Scan, func(paths []string) {
		if err := a.Refresh(ctx, abs, paths, runID); err != nil {
			slog.Error("refresh failed", "root", abs, "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{abs}); err != nil {
		return err
	}
	slog.Info("watching", "root", abs, "debounce", a.Config.Watch.Debounce)
	<-ctx.Done()
	return nil
}

// Refresh re-resolves changed paths under root and replaces their stored
// contributions. Missing files and files that no longer yield any locus are
// removed from the store.
func (a *App) Refresh(ctx context.Context, root string, paths []string, runID string) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	name := filepath.Base(root)

	var saved []store.Contrib
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = util.NormalizePatternPath(rel)
		if !a.walker.Matches(rel) {
			continue
		}

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			slog.Debug("removing contribution", "path", rel)
			if err := a.store.DeleteFile(LocalOwner, name, rel); err != nil {
				return err
			}
			continue
		}
		if err == nil && a.Config.Scan.MaxFileBytes > 0 && info.Size() > a.Config.Scan.MaxFileBytes {
			continue
		}

		res, err := a.resolveContrib(ctx, LocalOwner, name, root, path, runID)
		if err != nil {
			return err
		}
		if res.contrib == nil {
			// A file that stops parsing keeps its previous contribution.
			if !res.parseError {
				if err := a.store.DeleteFile(LocalOwner, name, rel); err != nil {
					return err
				}
			}
			continue
		}
		saved = append(saved, *res.contrib)
	}

	if len(saved) == 0 {
		return nil
	}
	if err := a.store.SaveContribs(saved); err != nil {
		return domainerrors.AddContext(err, domainerrors.CtxRepo, LocalOwner+"/"+name)
	}
	slog.Info("contributions refreshed", "root", root, "files", len(saved))
	return nil
}
