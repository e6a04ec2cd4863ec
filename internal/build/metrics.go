package build

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vellum",
		Subsystem: "build",
		Name:      "pages_generated_total",
		Help:      "Pages rendered and emitted, by phase.",
	}, []string{"phase"})

	pagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vellum",
		Subsystem: "build",
		Name:      "pages_skipped_total",
		Help:      "Pages skipped by the non-fatal failure policy, by category.",
	}, []string{"category"})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vellum",
		Subsystem: "build",
		Name:      "pass_duration_seconds",
		Help:      "Wall time of complete generation passes.",
		Buckets:   prometheus.DefBuckets,
	})
)
