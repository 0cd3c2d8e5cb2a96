package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contribs_resolve_seconds",
		Help:    "Time spent parsing and resolving one source file.",
		Buckets: prometheus.DefBuckets,
	})

	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contribs_files_total",
		Help: "Source files handled, by outcome (ok, empty, parse_error, read_error, too_large).",
	}, []string{"result"})

	LociTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contribs_loci_total",
		Help: "Total number of standard-library use sites emitted.",
	})

	ImportsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contribs_imports_dropped_total",
		Help: "Import bindings dropped before resolution, by reason.",
	}, []string{"reason"})

	MalformedAttributesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contribs_malformed_attributes_total",
		Help: "References skipped because their attribute access had no readable name.",
	})

	ReposTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contribs_repos_total",
		Help: "Repositories processed, by outcome.",
	}, []string{"result"})

	CloneDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contribs_clone_seconds",
		Help:    "Time spent shallow-cloning a repository.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	GitHubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contribs_github_requests_total",
		Help: "GitHub API requests, by result.",
	}, []string{"result"})

	GitHubThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contribs_github_throttled_total",
		Help: "GitHub API requests that had to wait for the rate limiter.",
	})

	StoreRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contribs_store_retries_total",
		Help: "SQLite writes retried after a busy or locked error.",
	})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contribs_api_requests_total",
		Help: "Read API requests, by operation and status code.",
	}, []string{"operation", "code"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contribs_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
