package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "treecheck_parse_seconds",
		Help:    "Time spent parsing a fixture source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "treecheck_match_seconds",
		Help:    "Time spent matching a normalized tree against its expectation pattern.",
		Buckets: prometheus.DefBuckets,
	})

	FixturesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treecheck_fixtures_processed_total",
		Help: "Total number of fixtures processed, labelled by verdict.",
	}, []string{"verdict"})

	FixturesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treecheck_fixtures_skipped_total",
		Help: "Total number of files skipped during discovery (unrecognized extension).",
	})

	MismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treecheck_mismatches_total",
		Help: "Total number of structural mismatches recorded across all fixtures.",
	})

	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treecheck_runs_total",
		Help: "Total number of conformance runs executed.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "treecheck_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
