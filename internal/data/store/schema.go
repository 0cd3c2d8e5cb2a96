package store

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS contribs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  repo_owner TEXT NOT NULL,
  repo_name TEXT NOT NULL,
  filepath TEXT NOT NULL,
  filename TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  run_id TEXT NOT NULL DEFAULT '',
  created_at_utc TEXT NOT NULL,
  UNIQUE (repo_owner, repo_name, filepath, filename)
);
CREATE INDEX IF NOT EXISTS idx_contribs_repo ON contribs(repo_owner, repo_name);

CREATE TABLE IF NOT EXISTS loci (
  contrib_id INTEGER NOT NULL REFERENCES contribs(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  ident TEXT NOT NULL,
  line INTEGER NOT NULL,
  PRIMARY KEY (contrib_id, seq)
);

CREATE TABLE IF NOT EXISTS catalogue (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  n_contribs INTEGER NOT NULL,
  n_repos INTEGER NOT NULL,
  n_files INTEGER NOT NULL,
  run_id TEXT NOT NULL DEFAULT '',
  updated_at_utc TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS licenses (
  owner TEXT NOT NULL,
  name TEXT NOT NULL,
  author TEXT NOT NULL,
  type TEXT NOT NULL,
  PRIMARY KEY (owner, name)
);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_loci_ident ON loci(ident);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
