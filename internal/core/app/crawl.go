package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"contribs/internal/core/config"
	"contribs/internal/core/ports"
	"contribs/internal/data/store"
	"contribs/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Crawl clones and scans every configured repository, then refreshes the
// catalogue and license tables. A failing repository is logged and counted
// in FailedRepos; the crawl only fails on store errors or cancellation.
func (a *App) Crawl(ctx context.Context) (ports.RunSummary, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Crawl",
		trace.WithAttributes(attribute.Int("repos", len(a.Config.Repos))))
	defer span.End()

	if err := a.requireStore(); err != nil {
		return ports.RunSummary{}, err
	}
	if a.repos == nil {
		return ports.RunSummary{}, fmt.Errorf("repository source is not configured")
	}

	start := time.Now()
	runID := uuid.NewString()
	total := ports.RunSummary{RunID: runID}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(max(1, a.Config.Scan.RepoWorkers))
	for _, repo := range a.Config.Repos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary, err := a.crawlRepo(ctx, repo, runID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				total.FailedRepos++
				observability.ReposTotal.WithLabelValues("error").Inc()
				slog.Warn("repository crawl failed", "repo", repo.FullName(), "error", err)
				return nil
			}
			observability.ReposTotal.WithLabelValues("ok").Inc()
			total.Add(summary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}

	if err := a.saveCatalogue(total); err != nil {
		return total, err
	}
	if err := a.store.SaveLicenses(licensesOf(a.Config.Repos)); err != nil {
		return total, err
	}

	total.Duration = time.Since(start)
	slog.Info("crawl complete",
		"run_id", total.RunID,
		"repos", total.Repos,
		"failed", total.FailedRepos,
		"files_seen", total.FilesSeen,
		"python_files", total.PythonFiles,
		"contribs", total.Contribs,
		"loci", total.Loci,
		"parse_errors", total.ParseErrors,
		"duration", total.Duration)
	return total, nil
}

func (a *App) crawlRepo(ctx context.Context, repo config.Repo, runID string) (ports.RunSummary, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.crawlRepo",
		trace.WithAttributes(attribute.String("repo", repo.FullName())))
	defer span.End()

	info, err := a.repos.Lookup(ctx, repo.Owner, repo.Name)
	if err != nil {
		return ports.RunSummary{}, err
	}
	if _, err := a.store.DeleteRepo(repo.Owner, repo.Name); err != nil {
		return ports.RunSummary{}, err
	}

	slog.Debug("cloning repository", "repo", repo.FullName(), "url", info.CloneURL)
	dir, err := a.cloner.Clone(ctx, info.CloneURL, repo.Owner+"-"+repo.Name)
	if err != nil {
		return ports.RunSummary{}, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove clone", "path", dir, "error", err)
		}
	}()

	return a.scanTree(ctx, repo.Owner, repo.Name, dir, runID)
}

func licensesOf(repos []config.Repo) []store.License {
	out := make([]store.License, 0, len(repos))
	for _, r := range repos {
		out = append(out, store.License{Owner: r.Owner, Name: r.Name, Author: r.Author, Type: r.License})
	}
	return out
}
