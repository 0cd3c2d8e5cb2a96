package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"contribs/internal/core/errors"
	"contribs/internal/engine/resolver"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "contribs.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("  ", 0)
	require.Error(t, err)

	dir := t.TempDir()
	_, err = Open(dir, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestOpen_SchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contribs.db")
	s, err := Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestSaveLoadContribs(t *testing.T) {
	s := openTestStore(t)

	loci := []resolver.Locus{
		{Ident: "sys.exit", Line: 9},
		{Ident: "os.getcwd", Line: 3},
		{Ident: "os.getcwd", Line: 3},
	}
	contribs := []Contrib{
		NewContrib("psf", "requests", "src/requests/api.py", "import os\n", "run-1", loci),
		NewContrib("psf", "requests", "setup.py", "import sys\n", "run-1", []resolver.Locus{{Ident: "sys.argv", Line: 1}}),
		NewContrib("pallets", "flask", "src/flask/app.py", "", "run-1", []resolver.Locus{{Ident: "typing.Any", Line: 2}}),
	}
	require.NoError(t, s.SaveContribs(contribs))

	got, err := s.LoadContribs("psf", "requests")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "setup.py", got[0].RelPath())
	assert.Equal(t, ".", got[0].Filepath)
	assert.Equal(t, "src/requests", got[1].Filepath)
	assert.Equal(t, "api.py", got[1].Filename)
	assert.Equal(t, "import os\n", got[1].Code)
	assert.Equal(t, "run-1", got[1].RunID)
	assert.False(t, got[1].CreatedAt.IsZero())
	if diff := cmp.Diff(loci, got[1].Loci); diff != "" {
		t.Errorf("loci order not preserved (-want +got):\n%s", diff)
	}

	contribsN, reposN, err := s.Totals()
	require.NoError(t, err)
	assert.Equal(t, 3, contribsN)
	assert.Equal(t, 2, reposN)
}

func TestSaveContribs_ReplacesSameFile(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveContribs([]Contrib{
		NewContrib("o", "r", "pkg/mod.py", "v1", "run-1", []resolver.Locus{{Ident: "os.sep", Line: 1}}),
	}))
	require.NoError(t, s.SaveContribs([]Contrib{
		NewContrib("o", "r", "pkg/mod.py", "v2", "run-2", []resolver.Locus{{Ident: "json.dumps", Line: 4}}),
	}))

	got, err := s.LoadContribs("o", "r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].Code)
	assert.Equal(t, []resolver.Locus{{Ident: "json.dumps", Line: 4}}, got[0].Loci)

	top, err := s.TopIdents(10)
	require.NoError(t, err)
	assert.Equal(t, []IdentCount{{Ident: "json.dumps", Count: 1}}, top)
}

func TestDeleteRepoAndFile(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveContribs([]Contrib{
		NewContrib("o", "r", "a.py", "", "", []resolver.Locus{{Ident: "os.sep", Line: 1}}),
		NewContrib("o", "r", "pkg/b.py", "", "", []resolver.Locus{{Ident: "os.sep", Line: 1}}),
		NewContrib("o", "other", "c.py", "", "", []resolver.Locus{{Ident: "re.compile", Line: 1}}),
	}))

	require.NoError(t, s.DeleteFile("o", "r", "pkg/b.py"))
	got, err := s.LoadContribs("o", "r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.py", got[0].RelPath())

	n, err := s.DeleteRepo("o", "r")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = s.LoadContribs("o", "r")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Loci of deleted contributions go with them.
	top, err := s.TopIdents(0)
	require.NoError(t, err)
	assert.Equal(t, []IdentCount{{Ident: "re.compile", Count: 1}}, top)
}

func TestTopIdents_Ordering(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveContribs([]Contrib{
		NewContrib("o", "r", "a.py", "", "", []resolver.Locus{
			{Ident: "os.path", Line: 1},
			{Ident: "sys.argv", Line: 2},
			{Ident: "os.path", Line: 3},
			{Ident: "json.loads", Line: 4},
		}),
		NewContrib("o", "r", "b.py", "", "", []resolver.Locus{{Ident: "sys.argv", Line: 1}, {Ident: "os.path", Line: 2}}),
	}))

	top, err := s.TopIdents(2)
	require.NoError(t, err)
	assert.Equal(t, []IdentCount{
		{Ident: "os.path", Count: 3},
		{Ident: "sys.argv", Count: 2},
	}, top)
}

func TestContribsByIdent(t *testing.T) {
	s := openTestStore(t)

	var contribs []Contrib
	for _, rel := range []string{"e.py", "a.py", "d.py", "c.py", "b.py"} {
		contribs = append(contribs, NewContrib("o", "r", rel, "", "run-1", []resolver.Locus{
			{Ident: "os.getcwd", Line: 1},
			{Ident: "os.getcwd", Line: 7},
		}))
	}
	contribs = append(contribs,
		NewContrib("a", "first", "x.py", "", "run-1", []resolver.Locus{{Ident: "sys.exit", Line: 2}, {Ident: "os.getcwd", Line: 5}}),
		NewContrib("o", "r", "other.py", "", "run-1", []resolver.Locus{{Ident: "os.getcwdb", Line: 1}}),
	)
	require.NoError(t, s.SaveContribs(contribs))

	first, err := s.ContribsByIdent("os.getcwd", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Total)
	assert.Equal(t, 2, first.PerPage)
	require.Len(t, first.Contribs, 2)
	assert.Equal(t, "a/first", first.Contribs[0].RepoOwner+"/"+first.Contribs[0].RepoName)
	assert.Equal(t, []resolver.Locus{{Ident: "sys.exit", Line: 2}, {Ident: "os.getcwd", Line: 5}}, first.Contribs[0].Loci)
	assert.Equal(t, "a.py", first.Contribs[1].RelPath())
	assert.Len(t, first.Contribs[1].Loci, 2)

	last, err := s.ContribsByIdent("os.getcwd", 3, 2)
	require.NoError(t, err)
	require.Len(t, last.Contribs, 2)
	assert.Equal(t, "d.py", last.Contribs[0].RelPath())
	assert.Equal(t, "e.py", last.Contribs[1].RelPath())

	beyond, err := s.ContribsByIdent("os.getcwd", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, beyond.Total)
	assert.NotNil(t, beyond.Contribs)
	assert.Empty(t, beyond.Contribs)

	defaults, err := s.ContribsByIdent("os.getcwd", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPerPage, defaults.PerPage)
	assert.Len(t, defaults.Contribs, DefaultPerPage)

	none, err := s.ContribsByIdent("json.dumps", 1, 0)
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.Empty(t, none.Contribs)

	_, err = s.ContribsByIdent("os.getcwd", 0, 2)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestCatalogue(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.LoadCatalogue()
	require.NoError(t, err)
	assert.False(t, found)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveCatalogue(Catalogue{NContribs: 10, NRepos: 2, NFiles: 40, RunID: "a", UpdatedAt: at}))
	require.NoError(t, s.SaveCatalogue(Catalogue{NContribs: 12, NRepos: 3, NFiles: 50, RunID: "b", UpdatedAt: at}))

	cat, found, err := s.LoadCatalogue()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Catalogue{NContribs: 12, NRepos: 3, NFiles: 50, RunID: "b", UpdatedAt: at}, cat)
}

func TestLicenses(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveLicenses([]License{
		{Owner: "psf", Name: "requests", Author: "Kenneth Reitz", Type: "Apache-2.0"},
		{Owner: "pallets", Name: "flask", Author: "Pallets", Type: "BSD-3-Clause"},
	}))
	require.NoError(t, s.SaveLicenses([]License{
		{Owner: "pallets", Name: "flask", Author: "Pallets", Type: "BSD-3-Clause"},
	}))

	got, err := s.LoadLicenses()
	require.NoError(t, err)
	assert.Equal(t, []License{{Owner: "pallets", Name: "flask", Author: "Pallets", Type: "BSD-3-Clause"}}, got)
}

func TestSplitRelPath(t *testing.T) {
	dir, file := splitRelPath("setup.py")
	assert.Equal(t, ".", dir)
	assert.Equal(t, "setup.py", file)

	dir, file = splitRelPath(filepath.Join("src", "pkg", "mod.py"))
	assert.Equal(t, "src/pkg", dir)
	assert.Equal(t, "mod.py", file)
}

func TestIsLockError(t *testing.T) {
	assert.True(t, isLockError(os.NewSyscallError("write", errString("database is locked (5) (SQLITE_BUSY)"))))
	assert.False(t, isLockError(errString("no such table")))
	assert.False(t, isLockError(nil))
}

type errString string

func (e errString) Error() string { return string(e) }
