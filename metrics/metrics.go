// Package metrics exposes Prometheus collectors for tangle builds, analysis
// passes and the run archive. They register on the default registry and are
// served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TanglesBuilt counts completed builds by strategy
	TanglesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tangle_builds_total",
		Help: "Total tangles built by tip selection strategy",
	}, []string{"strategy"})

	// NodesGenerated counts every node appended by a build
	NodesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tangle_nodes_generated_total",
		Help: "Total nodes appended across all builds",
	})

	// EmptyTipSelections counts nodes left without approval edges
	EmptyTipSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tangle_empty_tip_selections_total",
		Help: "Nodes whose tip selection returned no tips",
	}, []string{"strategy"})

	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tangle_build_duration_seconds",
		Help:    "Tangle build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	}, []string{"strategy"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tangle_analysis_duration_seconds",
		Help:    "Metrics pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"strategy"})

	// AnalysisErrors counts failed metrics passes by stage
	AnalysisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tangle_analysis_errors_total",
		Help: "Failed metrics passes by stage",
	}, []string{"stage"})

	// RunsStored tracks the number of runs held in the archive
	RunsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tangle_runs_stored",
		Help: "Simulation runs currently held in the archive",
	})
)
