package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerrors "contribs/internal/core/errors"
	"contribs/internal/engine/resolver"
	"contribs/internal/shared/observability"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	timeLayout  = time.RFC3339Nano
)

// Store persists contributions in SQLite. Writes are serialized; reads go
// through the single pooled connection.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

// DeleteRepo removes every contribution of a repository and returns how
// many were removed.
func (s *Store) DeleteRepo(owner, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.withRetry("delete repo", func() error {
		res, err := s.db.Exec(`DELETE FROM contribs WHERE repo_owner = ? AND repo_name = ?`, owner, name)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func (s *Store) DeleteFile(owner, name, relPath string) error {
	dir, file := splitRelPath(relPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("delete file", func() error {
		_, err := s.db.Exec(`DELETE FROM contribs WHERE repo_owner = ? AND repo_name = ? AND filepath = ? AND filename = ?`,
			owner, name, dir, file)
		return err
	})
}

// SaveContribs writes contribs in one transaction, replacing any stored
// contribution for the same file.
func (s *Store) SaveContribs(contribs []Contrib) error {
	if len(contribs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save contribs", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := saveContribsTx(tx, contribs); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func saveContribsTx(tx *sql.Tx, contribs []Contrib) error {
	now := time.Now().UTC()
	for _, c := range contribs {
		if _, err := tx.Exec(`DELETE FROM contribs WHERE repo_owner = ? AND repo_name = ? AND filepath = ? AND filename = ?`,
			c.RepoOwner, c.RepoName, c.Filepath, c.Filename); err != nil {
			return err
		}
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		res, err := tx.Exec(`
INSERT INTO contribs (repo_owner, repo_name, filepath, filename, code, run_id, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.RepoOwner, c.RepoName, c.Filepath, c.Filename, c.Code, c.RunID, created.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for seq, l := range c.Loci {
			if _, err := tx.Exec(`INSERT INTO loci (contrib_id, seq, ident, line) VALUES (?, ?, ?, ?)`,
				id, seq, l.Ident, l.Line); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadContribs returns the stored contributions of a repository ordered by
// path, each with its loci in emission order.
func (s *Store) LoadContribs(owner, name string) ([]Contrib, error) {
	var out []Contrib
	err := s.withRetry("load contribs", func() error {
		rows, err := s.db.Query(`
SELECT c.id, c.repo_owner, c.repo_name, c.filepath, c.filename, c.code, c.run_id, c.created_at_utc, l.ident, l.line
FROM contribs c
LEFT JOIN loci l ON l.contrib_id = c.id
WHERE c.repo_owner = ? AND c.repo_name = ?
ORDER BY c.filepath, c.filename, l.seq`, owner, name)
		if err != nil {
			return err
		}
		out, err = scanContribs(rows)
		return err
	})
	return out, err
}

// ContribsByIdent returns one page of the contributions that use ident,
// ordered by repository and path. Pages start at 1; perPage <= 0 means
// DefaultPerPage.
func (s *Store) ContribsByIdent(ident string, page, perPage int) (ContribPage, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	result := ContribPage{Contribs: []Contrib{}, Page: page, PerPage: perPage}
	if page < 1 {
		return result, domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("page must be >= 1, got %d", page))
	}
	offset := (page - 1) * perPage

	err := s.withRetry("contribs by ident", func() error {
		if err := s.db.QueryRow(`
SELECT COUNT(DISTINCT contrib_id) FROM loci WHERE ident = ?`, ident).Scan(&result.Total); err != nil {
			return err
		}
		rows, err := s.db.Query(`
WITH page AS (
  SELECT c.id
  FROM contribs c
  WHERE EXISTS (SELECT 1 FROM loci m WHERE m.contrib_id = c.id AND m.ident = ?)
  ORDER BY c.repo_owner, c.repo_name, c.filepath, c.filename
  LIMIT ? OFFSET ?
)
SELECT c.id, c.repo_owner, c.repo_name, c.filepath, c.filename, c.code, c.run_id, c.created_at_utc, l.ident, l.line
FROM page p
JOIN contribs c ON c.id = p.id
LEFT JOIN loci l ON l.contrib_id = c.id
ORDER BY c.repo_owner, c.repo_name, c.filepath, c.filename, l.seq`, ident, perPage, offset)
		if err != nil {
			return err
		}
		contribs, err := scanContribs(rows)
		if err != nil {
			return err
		}
		if contribs != nil {
			result.Contribs = contribs
		}
		return nil
	})
	return result, err
}

// scanContribs folds contrib x loci join rows into contributions. Rows of
// one contribution must be adjacent. rows is closed.
func scanContribs(rows *sql.Rows) ([]Contrib, error) {
	defer rows.Close()

	var out []Contrib
	for rows.Next() {
		var (
			c       Contrib
			created string
			ident   sql.NullString
			line    sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.RepoOwner, &c.RepoName, &c.Filepath, &c.Filename, &c.Code, &c.RunID, &created, &ident, &line); err != nil {
			return nil, fmt.Errorf("scan contrib row: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != c.ID {
			c.CreatedAt, _ = time.Parse(timeLayout, created)
			c.Loci = []resolver.Locus{}
			out = append(out, c)
		}
		if ident.Valid {
			last := &out[len(out)-1]
			last.Loci = append(last.Loci, resolver.Locus{Ident: ident.String, Line: int(line.Int64)})
		}
	}
	return out, rows.Err()
}

// Totals counts stored contributions and the repositories they belong to.
func (s *Store) Totals() (contribs, repos int, err error) {
	err = s.withRetry("count contribs", func() error {
		return s.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT repo_owner || '/' || repo_name) FROM contribs`).Scan(&contribs, &repos)
	})
	return contribs, repos, err
}

func (s *Store) SaveCatalogue(cat Catalogue) error {
	updated := cat.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save catalogue", func() error {
		_, err := s.db.Exec(`
INSERT INTO catalogue (id, n_contribs, n_repos, n_files, run_id, updated_at_utc)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  n_contribs = excluded.n_contribs,
  n_repos = excluded.n_repos,
  n_files = excluded.n_files,
  run_id = excluded.run_id,
  updated_at_utc = excluded.updated_at_utc`,
			cat.NContribs, cat.NRepos, cat.NFiles, cat.RunID, updated.UTC().Format(timeLayout))
		return err
	})
}

// LoadCatalogue reports false when no catalogue has been saved yet.
func (s *Store) LoadCatalogue() (Catalogue, bool, error) {
	var (
		cat   Catalogue
		found bool
	)
	err := s.withRetry("load catalogue", func() error {
		var updated string
		err := s.db.QueryRow(`SELECT n_contribs, n_repos, n_files, run_id, updated_at_utc FROM catalogue WHERE id = 1`).
			Scan(&cat.NContribs, &cat.NRepos, &cat.NFiles, &cat.RunID, &updated)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		cat.UpdatedAt, _ = time.Parse(timeLayout, updated)
		return nil
	})
	return cat, found, err
}

// SaveLicenses replaces the stored license table.
func (s *Store) SaveLicenses(licenses []License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save licenses", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM licenses`); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, l := range licenses {
			if _, err := tx.Exec(`INSERT INTO licenses (owner, name, author, type) VALUES (?, ?, ?, ?)`,
				l.Owner, l.Name, l.Author, l.Type); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *Store) LoadLicenses() ([]License, error) {
	var out []License
	err := s.withRetry("load licenses", func() error {
		out = nil
		rows, err := s.db.Query(`SELECT owner, name, author, type FROM licenses ORDER BY owner, name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var l License
			if err := rows.Scan(&l.Owner, &l.Name, &l.Author, &l.Type); err != nil {
				return fmt.Errorf("scan license row: %w", err)
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	return out, err
}

// TopIdents returns the most used identifiers across all stored loci.
func (s *Store) TopIdents(limit int) ([]IdentCount, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []IdentCount
	err := s.withRetry("top idents", func() error {
		out = nil
		rows, err := s.db.Query(`
SELECT ident, COUNT(*) AS n
FROM loci
GROUP BY ident
ORDER BY n DESC, ident ASC
LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ic IdentCount
			if err := rows.Scan(&ic.Ident, &ic.Count); err != nil {
				return fmt.Errorf("scan ident row: %w", err)
			}
			out = append(out, ic)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		observability.StoreRetriesTotal.Inc()
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// splitRelPath splits a slash-separated repository path into the
// (filepath, filename) pair used as the contribution key.
func splitRelPath(relPath string) (string, string) {
	relPath = filepath.ToSlash(relPath)
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return ".", relPath
	}
	return relPath[:i], relPath[i+1:]
}

// NewContrib builds a contribution keyed by its repository-relative path.
func NewContrib(owner, name, relPath, code, runID string, loci []resolver.Locus) Contrib {
	dir, file := splitRelPath(relPath)
	return Contrib{
		RepoOwner: owner,
		RepoName:  name,
		Filepath:  dir,
		Filename:  file,
		Code:      code,
		RunID:     runID,
		Loci:      loci,
	}
}
