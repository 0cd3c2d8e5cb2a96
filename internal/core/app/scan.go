package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"contribs/internal/core/errors"
	"contribs/internal/core/ports"
	"contribs/internal/data/store"
	"contribs/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ScanLocal treats every root as one repository owned by LocalOwner and
// named after the root's base name, replacing whatever was stored for it.
func (a *App) ScanLocal(ctx context.Context, roots []string) (ports.RunSummary, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.ScanLocal")
	defer span.End()

	if err := a.requireStore(); err != nil {
		return ports.RunSummary{}, err
	}

	start := time.Now()
	total := ports.RunSummary{RunID: uuid.NewString()}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return total, fmt.Errorf("resolve scan root %q: %w", root, err)
		}
		name := filepath.Base(abs)

		if _, err := a.store.DeleteRepo(LocalOwner, name); err != nil {
			return total, err
		}
		summary, err := a.scanTree(ctx, LocalOwner, name, abs, total.RunID)
		if err != nil {
			return total, err
		}
		total.Add(summary)
	}

	if err := a.saveCatalogue(total); err != nil {
		return total, err
	}
	total.Duration = time.Since(start)
	slog.Info("scan complete",
		"run_id", total.RunID,
		"repos", total.Repos,
		"python_files", total.PythonFiles,
		"contribs", total.Contribs,
		"loci", total.Loci,
		"parse_errors", total.ParseErrors,
		"duration", total.Duration)
	return total, nil
}

type fileResult struct {
	contrib    *store.Contrib
	parseError bool
}

// scanTree walks root, resolves every candidate file on a bounded worker
// pool and stores the files that produced at least one locus. Stored
// contributions keep walk order.
func (a *App) scanTree(ctx context.Context, owner, name, root, runID string) (ports.RunSummary, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.scanTree",
		trace.WithAttributes(attribute.String("repo", owner+"/"+name)))
	defer span.End()

	var files []string
	ws, err := a.walker.Walk(ctx, root, func(path string) error {
		files = append(files, path)
		return nil
	})
	if err != nil {
		return ports.RunSummary{}, fmt.Errorf("walk %s: %w", root, err)
	}
	if ws.TooLarge > 0 {
		observability.FilesTotal.WithLabelValues("too_large").Add(float64(ws.TooLarge))
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.Config.Scan.Workers))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := a.resolveContrib(gctx, owner, name, root, path, runID)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.RunSummary{}, err
	}

	summary := ports.RunSummary{
		Repos:       1,
		FilesSeen:   ws.FilesSeen,
		PythonFiles: ws.Candidates,
	}
	contribs := make([]store.Contrib, 0, len(results))
	for _, res := range results {
		if res.parseError {
			summary.ParseErrors++
		}
		if res.contrib == nil {
			continue
		}
		contribs = append(contribs, *res.contrib)
		summary.Loci += len(res.contrib.Loci)
	}
	summary.Contribs = len(contribs)

	if len(contribs) > 0 {
		if err := a.store.SaveContribs(contribs); err != nil {
			return summary, fmt.Errorf("save %s/%s: %w", owner, name, err)
		}
	}
	slog.Info("repository scanned",
		"repo", owner+"/"+name,
		"files_seen", summary.FilesSeen,
		"python_files", summary.PythonFiles,
		"contribs", summary.Contribs,
		"loci", summary.Loci,
		"parse_errors", summary.ParseErrors)
	return summary, nil
}

// resolveContrib turns one file into a contribution. Parse and read
// failures are logged and reported in the result; only cancellation is
// returned as an error.
func (a *App) resolveContrib(ctx context.Context, owner, name, root, path, runID string) (fileResult, error) {
	analysis, src, err := a.analyzeFile(ctx, root, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fileResult{}, ctxErr
		}
		code := errors.CodeOf(err)
		if code == errors.CodeParse {
			slog.Debug("skipping unparsable file", "path", path, "error", err)
			return fileResult{parseError: true}, nil
		}
		slog.Warn("failed to read file", "path", path, "code", code, "error", err)
		return fileResult{}, nil
	}
	if len(analysis.Loci) == 0 {
		return fileResult{}, nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fileResult{}, err
	}
	c := store.NewContrib(owner, name, rel, string(src), runID, analysis.Loci)
	return fileResult{contrib: &c}, nil
}

func (a *App) saveCatalogue(run ports.RunSummary) error {
	contribs, repos, err := a.store.Totals()
	if err != nil {
		return err
	}
	return a.store.SaveCatalogue(store.Catalogue{
		NContribs: contribs,
		NRepos:    repos,
		NFiles:    run.PythonFiles,
		RunID:     run.RunID,
		UpdatedAt: time.Now().UTC(),
	})
}
