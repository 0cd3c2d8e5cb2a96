package store

import (
	"path"
	"time"

	"contribs/internal/engine/resolver"
)

// Contrib is one source file of one repository together with the loci
// resolved from it. Filepath is the slash-separated directory relative to
// the repository root; Loci keep emission order.
type Contrib struct {
	ID        int64
	RepoOwner string
	RepoName  string
	Filepath  string
	Filename  string
	Code      string
	RunID     string
	CreatedAt time.Time
	Loci      []resolver.Locus
}

// RelPath joins Filepath and Filename.
func (c Contrib) RelPath() string {
	return path.Join(c.Filepath, c.Filename)
}

// Catalogue holds the descriptive totals of the last run.
type Catalogue struct {
	NContribs int
	NRepos    int
	NFiles    int
	RunID     string
	UpdatedAt time.Time
}

// DefaultPerPage is the page size of ContribsByIdent.
const DefaultPerPage = 6

// ContribPage is one page of the contributions using an identifier. Total
// counts every matching contribution, not just this page.
type ContribPage struct {
	Contribs []Contrib
	Total    int
	Page     int
	PerPage  int
}

type License struct {
	Owner  string
	Name   string
	Author string
	Type   string
}

type IdentCount struct {
	Ident string
	Count int
}
