// # internal/core/app/app.go
package app

import (
	"fmt"

	"contribs/internal/core/config"
	"contribs/internal/core/ports"
	"contribs/internal/engine/resolver"
	"contribs/internal/engine/stdlib"
	"contribs/internal/source"
)

// LocalOwner is the owner recorded for repositories scanned from disk.
const LocalOwner = "local"

type App struct {
	Config *config.Config
	Stdlib stdlib.Set

	resolver *resolver.Resolver
	walker   *source.Walker
	store    ports.ContribStore
	repos    ports.RepoSource
	cloner   ports.Cloner
}

type Option func(*App)

func WithStore(s ports.ContribStore) Option {
	return func(a *App) { a.store = s }
}

func WithRepoSource(r ports.RepoSource) Option {
	return func(a *App) { a.repos = r }
}

func WithCloner(c ports.Cloner) Option {
	return func(a *App) { a.cloner = c }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	set, err := loadStdlib(cfg.Stdlib)
	if err != nil {
		return nil, err
	}
	walker, err := source.NewWalker(cfg.Scan)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Stdlib:   set,
		resolver: resolver.New(set, nil),
		walker:   walker,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cloner == nil {
		a.cloner = source.NewCloner(cfg.Clone)
	}
	return a, nil
}

func loadStdlib(cfg config.Stdlib) (stdlib.Set, error) {
	if cfg.File != "" {
		return stdlib.Load(cfg.File, cfg.Deny)
	}
	return stdlib.Embedded(cfg.Deny), nil
}

func (a *App) requireStore() error {
	if a.store == nil {
		return fmt.Errorf("contribution store is not configured")
	}
	return nil
}
