package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"contribs/internal/api"
	"contribs/internal/core/app"
	"contribs/internal/core/config"
	"contribs/internal/data/store"
	"contribs/internal/shared/observability"
	"contribs/internal/source"
)

type runtimeOptions struct {
	store  bool
	github bool
	serve  bool
}

// runtime bundles what a command needs and tears it down in reverse order.
type runtime struct {
	cfg     *config.Config
	app     *app.App
	store   *store.Store
	closers []func(context.Context) error
}

func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg}

	var appOpts []app.Option
	if opts.store {
		s, err := store.Open(cfg.DB.Path, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		rt.store = s
		rt.closers = append(rt.closers, func(context.Context) error { return s.Close() })
		appOpts = append(appOpts, app.WithStore(s))
	}
	if opts.github {
		gh, err := source.NewGitHub(ctx, cfg.GitHub)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if !gh.Authenticated() {
			slog.Warn("no GitHub token found, deriving clone URLs directly", "env", cfg.GitHub.TokenEnv)
		}
		appOpts = append(appOpts, app.WithRepoSource(gh))
	}

	rt.app, err = app.New(cfg, appOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if opts.serve {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, shutdown)

		if cfg.Observability.MetricsAddr != "" {
			srv := observability.NewServer(cfg.Observability.MetricsAddr, app.NewHealthService(rt.app).Check)
			if rt.store != nil {
				h, err := api.NewHandler(rt.store)
				if err != nil {
					rt.Close()
					return nil, err
				}
				srv.Handle("/api/", h)
			}
			if err := srv.Start(ctx); err != nil {
				rt.Close()
				return nil, err
			}
			rt.closers = append(rt.closers, srv.Stop)
		}
	}
	return rt, nil
}

func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i](ctx))
	}
	rt.closers = nil
	if err := errors.Join(errs...); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
}
