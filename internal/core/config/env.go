package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CONTRIBS_[SECTION]_[KEY] (e.g., CONTRIBS_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Stdlib.File, "CONTRIBS_STDLIB_FILE")

	setEnvInt64(&cfg.Scan.MaxFileBytes, "CONTRIBS_SCAN_MAX_FILE_BYTES")
	setEnvInt(&cfg.Scan.Workers, "CONTRIBS_SCAN_WORKERS")
	setEnvInt(&cfg.Scan.RepoWorkers, "CONTRIBS_SCAN_REPO_WORKERS")

	setEnvString(&cfg.GitHub.TokenEnv, "CONTRIBS_GITHUB_TOKEN_ENV")
	setEnvString(&cfg.GitHub.BaseURL, "CONTRIBS_GITHUB_BASE_URL")
	setEnvFloat64(&cfg.GitHub.Rate, "CONTRIBS_GITHUB_RATE")
	setEnvInt(&cfg.GitHub.Burst, "CONTRIBS_GITHUB_BURST")

	setEnvString(&cfg.Clone.GitBinary, "CONTRIBS_CLONE_GIT_BINARY")
	setEnvString(&cfg.Clone.BlobLimit, "CONTRIBS_CLONE_BLOB_LIMIT")
	setEnvString(&cfg.Clone.TempDir, "CONTRIBS_CLONE_TEMP_DIR")
	setEnvDuration(&cfg.Clone.Timeout, "CONTRIBS_CLONE_TIMEOUT")

	setEnvString(&cfg.DB.Path, "CONTRIBS_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "CONTRIBS_DB_BUSY_TIMEOUT")

	setEnvDuration(&cfg.Watch.Debounce, "CONTRIBS_WATCH_DEBOUNCE")

	setEnvString(&cfg.Observability.MetricsAddr, "CONTRIBS_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CONTRIBS_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
