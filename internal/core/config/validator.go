package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	if cfg.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be >= 1, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.RepoWorkers < 1 {
		return fmt.Errorf("scan.repo_workers must be >= 1, got %d", cfg.Scan.RepoWorkers)
	}
	if len(cfg.Scan.Extensions) == 0 {
		return fmt.Errorf("scan.extensions must not be empty")
	}
	for _, pattern := range cfg.Scan.ExcludeDirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("scan.exclude_dirs: invalid pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Scan.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("scan.exclude_files: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateGitHub(cfg *Config) error {
	if cfg.GitHub.Rate < 0 {
		return fmt.Errorf("github.rate must be >= 0, got %v", cfg.GitHub.Rate)
	}
	if cfg.GitHub.Burst < 1 {
		return fmt.Errorf("github.burst must be >= 1, got %d", cfg.GitHub.Burst)
	}
	if cfg.GitHub.BaseURL != "" && !strings.HasSuffix(cfg.GitHub.BaseURL, "/") {
		return fmt.Errorf("github.base_url must end with a slash, got %q", cfg.GitHub.BaseURL)
	}
	return nil
}

func validateClone(cfg *Config) error {
	if cfg.Clone.Depth < 1 {
		return fmt.Errorf("clone.depth must be >= 1, got %d", cfg.Clone.Depth)
	}
	return nil
}

// validateRepos requires license bookkeeping for every crawled repository.
func validateRepos(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Repos))
	for i, repo := range cfg.Repos {
		ref := fmt.Sprintf("repos[%d]", i)
		if repo.Owner == "" {
			return fmt.Errorf("%s.owner must not be empty", ref)
		}
		if repo.Name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		full := repo.FullName()
		if repo.License == "" {
			return fmt.Errorf("%s (%s): license must not be empty", ref, full)
		}
		if repo.Author == "" {
			return fmt.Errorf("%s (%s): author must not be empty", ref, full)
		}
		key := strings.ToLower(full)
		if seen[key] {
			return fmt.Errorf("duplicate repository %q", full)
		}
		seen[key] = true
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}
