package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sectionsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cfrstat_sections_ingested_total",
		Help: "Sections written by document ingestion",
	})

	sectionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cfrstat_sections_skipped_total",
		Help: "Sections skipped by ingestion because they were already stored",
	})

	metricValuesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cfrstat_metric_values_computed_total",
		Help: "Metric values computed and written",
	})

	batchesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cfrstat_batches_discarded_total",
		Help: "Write batches rolled back and discarded, by kind",
	}, []string{"kind"})

	rollupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cfrstat_rollup_duration_seconds",
		Help:    "Roll-up query latency",
		Buckets: prometheus.DefBuckets,
	})
)
