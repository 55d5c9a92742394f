// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	endpointsCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidgate_endpoints_current",
		Help: "Number of backend endpoints in the active list",
	})

	endpointsLastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidgate_endpoints_last_replace_timestamp_seconds",
		Help: "Unix time of the last successful endpoint list replacement",
	})

	endpointRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_endpoint_refresh_total",
		Help: "Endpoint list source fetches by source and outcome",
	}, []string{"source", "outcome"}) // outcome=ok|empty|error

	refreshTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgate_endpoint_refresh_triggers_total",
		Help: "Refresh triggers by origin and whether they were admitted",
	}, []string{"origin", "admitted"}) // origin=startup|interval|request|file|manual
)

// SetEndpointsCurrent records the size of the active list and when it was installed.
func SetEndpointsCurrent(n int, at time.Time) {
	endpointsCurrent.Set(float64(n))
	if !at.IsZero() {
		endpointsLastRefresh.Set(float64(at.Unix()))
	}
}

// RecordSourceRefresh counts one source fetch during a refresh.
func RecordSourceRefresh(source, outcome string) {
	endpointRefreshTotal.WithLabelValues(source, outcome).Inc()
}

// RecordRefreshTrigger counts a refresh trigger.
func RecordRefreshTrigger(origin string, admitted bool) {
	a := "false"
	if admitted {
		a = "true"
	}
	refreshTriggers.WithLabelValues(origin, a).Inc()
}
