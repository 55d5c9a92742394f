// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/vidgate/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestResolverMetricsExposed(t *testing.T) {
	metrics.RecordAttempt("video", "https://a.example", "timeout", 4*time.Second)
	metrics.RecordResolution("fallback", 15*time.Second, 2)
	metrics.RecordComments("skipped")

	body := scrape(t)
	for _, want := range []string{
		`vidgate_upstream_attempts_total{endpoint="https://a.example",outcome="timeout",resource="video"}`,
		`vidgate_resolutions_total{outcome="fallback"}`,
		`vidgate_comments_fetch_total{outcome="skipped"}`,
		`vidgate_resolution_sweeps_count`,
	} {
		assert.True(t, strings.Contains(body, want), "missing %s", want)
	}
}

func TestEndpointMetricsExposed(t *testing.T) {
	metrics.SetEndpointsCurrent(3, time.Unix(1700000000, 0))
	metrics.RecordSourceRefresh("health-checker", "ok")
	metrics.RecordRefreshTrigger("request", false)

	body := scrape(t)
	assert.Contains(t, body, "vidgate_endpoints_current 3")
	assert.Contains(t, body, "vidgate_endpoints_last_replace_timestamp_seconds 1.7e+09")
	assert.Contains(t, body, `vidgate_endpoint_refresh_total{outcome="ok",source="health-checker"}`)
	assert.Contains(t, body, `vidgate_endpoint_refresh_triggers_total{admitted="false",origin="request"}`)
}
