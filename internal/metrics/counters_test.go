// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAttemptCounts(t *testing.T) {
	upstreamAttempts.Reset()
	upstreamAttemptDuration.Reset()

	RecordAttempt("video", "https://b.example", "ok", 300*time.Millisecond)
	RecordAttempt("video", "https://b.example", "ok", 200*time.Millisecond)
	RecordAttempt("comments", "https://b.example", "status", 10*time.Millisecond)

	if got := testutil.ToFloat64(upstreamAttempts.WithLabelValues("video", "https://b.example", "ok")); got != 2 {
		t.Errorf("expected 2 ok video attempts, got %f", got)
	}
	if got := testutil.ToFloat64(upstreamAttempts.WithLabelValues("comments", "https://b.example", "status")); got != 1 {
		t.Errorf("expected 1 failed comments attempt, got %f", got)
	}
	if count := testutil.CollectAndCount(upstreamAttemptDuration); count != 2 {
		t.Errorf("expected duration series for video and comments, got %d", count)
	}
}

func TestRecordResolutionSkipsZeroObservations(t *testing.T) {
	resolutionsTotal.Reset()
	resolutionDuration.Reset()

	RecordResolution("canceled", 0, 0)

	if got := testutil.ToFloat64(resolutionsTotal.WithLabelValues("canceled")); got != 1 {
		t.Errorf("expected 1 canceled resolution, got %f", got)
	}
	if count := testutil.CollectAndCount(resolutionDuration); count != 0 {
		t.Errorf("expected no duration observation, got %d series", count)
	}
}

func TestRecordRefreshTriggerAdmittedLabel(t *testing.T) {
	refreshTriggers.Reset()

	RecordRefreshTrigger("request", true)
	RecordRefreshTrigger("request", false)
	RecordRefreshTrigger("request", false)

	if got := testutil.ToFloat64(refreshTriggers.WithLabelValues("request", "false")); got != 2 {
		t.Errorf("expected 2 throttled triggers, got %f", got)
	}
	if got := testutil.ToFloat64(refreshTriggers.WithLabelValues("request", "true")); got != 1 {
		t.Errorf("expected 1 admitted trigger, got %f", got)
	}
}

func TestSetEndpointsCurrentKeepsTimestampOnZeroTime(t *testing.T) {
	SetEndpointsCurrent(2, time.Unix(1700000100, 0))
	SetEndpointsCurrent(0, time.Time{})

	if got := testutil.ToFloat64(endpointsCurrent); got != 0 {
		t.Errorf("expected gauge 0, got %f", got)
	}
	if got := testutil.ToFloat64(endpointsLastRefresh); got != 1700000100 {
		t.Errorf("expected timestamp preserved, got %f", got)
	}
}

func TestMetricNames(t *testing.T) {
	tests := []struct {
		name   string
		metric prometheus.Collector
		want   string
	}{
		{"endpointsCurrent", endpointsCurrent, "vidgate_endpoints_current"},
		{"endpointsLastRefresh", endpointsLastRefresh, "vidgate_endpoints_last_replace_timestamp_seconds"},
		{"resolutionSweeps", resolutionSweeps, "vidgate_resolution_sweeps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			reg.MustRegister(tt.metric)

			families, err := reg.Gather()
			if err != nil {
				t.Fatalf("failed to gather metrics: %v", err)
			}
			found := false
			for _, mf := range families {
				if mf.GetName() == tt.want {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected metric %s not found", tt.want)
			}
		})
	}
}
