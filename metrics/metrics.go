package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	STAGE_PARSE    = "parse"
	STAGE_WALK     = "walk"
	STAGE_INDEX    = "index"
	STAGE_DIAGNOSE = "diagnose"
)

var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mtscript_analysis_stage_seconds",
		Help:    "Time spent in each stage of document analysis.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	OpenDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mtscript_open_documents",
		Help: "Number of documents with a stored analysis.",
	})

	IndexedSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mtscript_indexed_symbols",
		Help: "Number of records in the workspace symbol index.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mtscript_diagnostics_total",
		Help: "Total number of diagnostics produced, by severity.",
	}, []string{"severity"})

	CompletionRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mtscript_completion_requests_total",
		Help: "Total number of completion requests served.",
	})
)

// ObserveStage records the time elapsed since start for a stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
