package config

import (
	"os"
	"strings"
	"time"

	"contribs/internal/core/errors"
	"contribs/internal/engine/stdlib"

	"github.com/BurntSushi/toml"
)

const DefaultFile = "contribs.toml"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text, fills defaults and validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	normalize(cfg)

	validators := []func(*Config) error{
		validateVersion,
		validateScan,
		validateGitHub,
		validateClone,
		validateRepos,
		validateDatabase,
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Stdlib.Deny == nil {
		cfg.Stdlib.Deny = append([]string(nil), stdlib.DefaultDeny...)
	}

	if len(cfg.Scan.Extensions) == 0 {
		cfg.Scan.Extensions = []string{".py", ".pyi"}
	}
	if cfg.Scan.ExcludeDirs == nil {
		cfg.Scan.ExcludeDirs = []string{".git", "vendor", "node_modules", ".venv", "venv", "__pycache__", "site-packages"}
	}
	if cfg.Scan.MaxFileBytes <= 0 {
		cfg.Scan.MaxFileBytes = 1 << 20
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = 8
	}
	if cfg.Scan.RepoWorkers <= 0 {
		cfg.Scan.RepoWorkers = 3
	}

	if strings.TrimSpace(cfg.GitHub.TokenEnv) == "" {
		cfg.GitHub.TokenEnv = "GITHUB_ACCESS_TOKEN_CONTRIBS"
	}
	if cfg.GitHub.Rate == 0 {
		cfg.GitHub.Rate = 1
	}
	if cfg.GitHub.Burst == 0 {
		cfg.GitHub.Burst = 5
	}

	if strings.TrimSpace(cfg.Clone.GitBinary) == "" {
		cfg.Clone.GitBinary = "git"
	}
	if cfg.Clone.Depth == 0 {
		cfg.Clone.Depth = 1
	}
	if strings.TrimSpace(cfg.Clone.BlobLimit) == "" {
		cfg.Clone.BlobLimit = "1m"
	}
	if cfg.Clone.Timeout <= 0 {
		cfg.Clone.Timeout = 5 * time.Minute
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "contribs.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "contribs"
	}
}

func normalize(cfg *Config) {
	cfg.Stdlib.File = strings.TrimSpace(cfg.Stdlib.File)
	cfg.Stdlib.Deny = trimAll(cfg.Stdlib.Deny)

	exts := make([]string, 0, len(cfg.Scan.Extensions))
	for _, ext := range trimAll(cfg.Scan.Extensions) {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	cfg.Scan.Extensions = exts
	cfg.Scan.ExcludeDirs = trimAll(cfg.Scan.ExcludeDirs)
	cfg.Scan.ExcludeFiles = trimAll(cfg.Scan.ExcludeFiles)

	cfg.GitHub.TokenEnv = strings.TrimSpace(cfg.GitHub.TokenEnv)
	cfg.GitHub.BaseURL = strings.TrimSpace(cfg.GitHub.BaseURL)

	for i := range cfg.Repos {
		repo := &cfg.Repos[i]
		repo.Owner = strings.TrimSpace(repo.Owner)
		repo.Name = strings.TrimSpace(repo.Name)
		repo.Author = strings.TrimSpace(repo.Author)
		repo.License = strings.TrimSpace(repo.License)
	}

	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.Observability.MetricsAddr = strings.TrimSpace(cfg.Observability.MetricsAddr)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
