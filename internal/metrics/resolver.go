// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics holds the Prometheus instruments shared across vidgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_upstream_attempts_total",
		Help: "Bounded fetch attempts against backend endpoints by resource and outcome",
	}, []string{"resource", "endpoint", "outcome"}) // resource=video|comments

	upstreamAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidgate_upstream_attempt_duration_seconds",
		Help:    "Wall-clock duration of bounded fetch attempts",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 9},
	}, []string{"resource"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_resolutions_total",
		Help: "Video resolutions by outcome",
	}, []string{"outcome"}) // outcome=stream|fallback|no_backends|canceled

	resolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidgate_resolution_duration_seconds",
		Help:    "Time spent in primary resolution until a winner or the deadline",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 12, 15, 20},
	}, []string{"outcome"})

	resolutionSweeps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidgate_resolution_sweeps",
		Help:    "Number of full or partial endpoint list sweeps per resolution",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})

	commentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_comments_fetch_total",
		Help: "Dependent comments fetches by outcome",
	}, []string{"outcome"}) // outcome=ok|empty|skipped
)

// RecordAttempt counts one bounded fetch and observes its duration.
func RecordAttempt(resource, endpoint, outcome string, d time.Duration) {
	upstreamAttempts.WithLabelValues(resource, endpoint, outcome).Inc()
	upstreamAttemptDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// RecordResolution counts a finished primary resolution.
func RecordResolution(outcome string, d time.Duration, sweeps int) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		resolutionDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
	if sweeps > 0 {
		resolutionSweeps.Observe(float64(sweeps))
	}
}

// RecordComments counts a dependent comments fetch.
func RecordComments(outcome string) {
	commentsTotal.WithLabelValues(outcome).Inc()
}
