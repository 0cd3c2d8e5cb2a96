package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Stdlib        Stdlib        `toml:"stdlib"`
	Scan          Scan          `toml:"scan"`
	GitHub        GitHub        `toml:"github"`
	Clone         Clone         `toml:"clone"`
	Repos         []Repo        `toml:"repos"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

// Stdlib selects the standard-library set. An empty File means the
// embedded CPython list.
type Stdlib struct {
	File string   `toml:"file"`
	Deny []string `toml:"deny"`
}

type Scan struct {
	Extensions   []string `toml:"extensions"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
	MaxFileBytes int64    `toml:"max_file_bytes"`
	Workers      int      `toml:"workers"`
	RepoWorkers  int      `toml:"repo_workers"`
}

type GitHub struct {
	TokenEnv string  `toml:"token_env"`
	BaseURL  string  `toml:"base_url"`
	Rate     float64 `toml:"rate"`
	Burst    int     `toml:"burst"`
}

type Clone struct {
	GitBinary string        `toml:"git_binary"`
	Depth     int           `toml:"depth"`
	BlobLimit string        `toml:"blob_limit"`
	TempDir   string        `toml:"temp_dir"`
	Timeout   time.Duration `toml:"timeout"`
}

// Repo is one repository to crawl, with the license bookkeeping that goes
// with it.
type Repo struct {
	Owner   string `toml:"owner"`
	Name    string `toml:"name"`
	Author  string `toml:"author"`
	License string `toml:"license"`
}

func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

type Database struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}
