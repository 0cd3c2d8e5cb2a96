package ports

import (
	"context"
	"time"

	"contribs/internal/data/store"
	"contribs/internal/source"
)

// ContribStore abstracts persistence of resolved contributions.
type ContribStore interface {
	DeleteRepo(owner, name string) (int64, error)
	DeleteFile(owner, name, relPath string) error
	SaveContribs(contribs []store.Contrib) error
	Totals() (contribs, repos int, err error)
	SaveCatalogue(cat store.Catalogue) error
	SaveLicenses(licenses []store.License) error
	Ping() error
}

// ContribReader serves stored contributions, licenses and the catalogue.
type ContribReader interface {
	ContribsByIdent(ident string, page, perPage int) (store.ContribPage, error)
	LoadLicenses() ([]store.License, error)
	LoadCatalogue() (store.Catalogue, bool, error)
}

// RepoSource resolves a configured repository to something cloneable.
type RepoSource interface {
	Lookup(ctx context.Context, owner, name string) (source.RepoInfo, error)
}

// Cloner materialises a repository into a fresh directory owned by the caller.
type Cloner interface {
	Clone(ctx context.Context, url, prefix string) (string, error)
}

// RunSummary counts what a scan or crawl did.
type RunSummary struct {
	RunID       string
	Repos       int
	FailedRepos int
	FilesSeen   int
	PythonFiles int
	Contribs    int
	Loci        int
	ParseErrors int
	Duration    time.Duration
}

// Add folds other into s. RunID and Duration are left alone.
func (s *RunSummary) Add(other RunSummary) {
	s.Repos += other.Repos
	s.FailedRepos += other.FailedRepos
	s.FilesSeen += other.FilesSeen
	s.PythonFiles += other.PythonFiles
	s.Contribs += other.Contribs
	s.Loci += other.Loci
	s.ParseErrors += other.ParseErrors
}
