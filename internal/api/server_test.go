// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vidgate/internal/endpoints"
	"github.com/ManuGH/vidgate/internal/health"
	"github.com/ManuGH/vidgate/internal/resolver"
	"github.com/ManuGH/vidgate/internal/upstream"
)

type stubResolver struct {
	mu    sync.Mutex
	calls []string
	out   resolver.Outcome
	err   error
}

func (s *stubResolver) Resolve(_ context.Context, id string) (resolver.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if s.err != nil {
		return resolver.FallbackOutcome(id), s.err
	}
	return s.out, nil
}

type stubProvider struct {
	snap       endpoints.Snapshot
	refresh    endpoints.RefreshResult
	refreshErr error
	triggers   []string
}

func (p *stubProvider) Snapshot() endpoints.Snapshot { return p.snap }

func (p *stubProvider) Refresh(context.Context) (endpoints.RefreshResult, error) {
	return p.refresh, p.refreshErr
}

func (p *stubProvider) TriggerRefresh(_ context.Context, origin string) bool {
	p.triggers = append(p.triggers, origin)
	return true
}

func newTestServer(t *testing.T, res Resolver, prov EndpointProvider) *Server {
	t.Helper()
	s, err := New(Config{}, Deps{Resolver: res, Endpoints: prov, Version: "test"})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func streamOutcome() resolver.Outcome {
	winner := endpoints.Endpoint("https://y.example")
	return resolver.Outcome{
		Video: resolver.Video{
			StreamURL:   "https://cdn.example/a.mp4",
			Title:       "A <b>title</b>",
			ChannelName: "Chan",
			Views:       1234567,
			Likes:       42,
		},
		Comments: resolver.Comments{
			CommentCount: 1,
			Comments: []resolver.Comment{{
				Author:  "bob",
				Content: "first!",
				AuthorThumbnails: []resolver.Thumbnail{{URL: "https://img.example/bob.png"}},
			}},
		},
		Winner: &winner,
	}
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{Endpoints: &stubProvider{}})
	require.Error(t, err)
	_, err = New(Config{}, Deps{Resolver: &stubResolver{}})
	require.Error(t, err)
}

func TestWatchJSON_Stream(t *testing.T) {
	res := &stubResolver{out: streamOutcome()}
	prov := &stubProvider{}
	s := newTestServer(t, res, prov)

	w := do(t, s, http.MethodGet, "/api/watch/abc123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc123", body["videoId"])
	assert.Equal(t, false, body["fallback"])
	assert.Equal(t, "https://y.example", body["winner"])
	video := body["video"].(map[string]any)
	assert.Equal(t, "https://cdn.example/a.mp4", video["stream_url"])

	assert.Equal(t, []string{"abc123"}, res.calls)
	assert.Equal(t, []string{endpoints.OriginRequest}, prov.triggers, "every watch request nudges the refresh")
}

func TestWatchJSON_Fallback(t *testing.T) {
	s := newTestServer(t, &stubResolver{out: resolver.FallbackOutcome("abc")}, &stubProvider{})

	w := do(t, s, http.MethodGet, "/api/watch/abc")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["fallback"])
	assert.NotContains(t, body, "winner")
	assert.Equal(t, "https://www.youtube-nocookie.com/embed/abc?autoplay=1", body["embedUrl"])
	video := body["video"].(map[string]any)
	assert.Equal(t, resolver.SentinelStream, video["stream_url"])
	comments := body["comments"].(map[string]any)
	assert.Equal(t, float64(0), comments["commentCount"])
	assert.Equal(t, []any{}, comments["comments"])
}

func TestWatchJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"no backends", resolver.ErrNoBackends, http.StatusServiceUnavailable, "no_backends"},
		{"invalid id", resolver.ErrInvalidVideoID, http.StatusBadRequest, "invalid_video_id"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &stubResolver{err: tt.err}, &stubProvider{})
			w := do(t, s, http.MethodGet, "/api/watch/abc")
			assert.Equal(t, tt.code, w.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Error)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestWatchPage_Stream(t *testing.T) {
	s := newTestServer(t, &stubResolver{out: streamOutcome()}, &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/video/abc123", nil)
	req.Header.Set("Accept-Language", "en-US")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	page := w.Body.String()
	assert.Contains(t, page, `<source src="https://cdn.example/a.mp4"`)
	assert.Contains(t, page, "1,234,567 views")
	assert.Contains(t, page, "A &lt;b&gt;title&lt;/b&gt;", "titles are escaped")
	assert.Contains(t, page, "first!")
	assert.Contains(t, page, "https://img.example/bob.png")
	assert.NotContains(t, page, "<iframe")
}

func TestWatchPage_Fallback(t *testing.T) {
	s := newTestServer(t, &stubResolver{out: resolver.FallbackOutcome("abc")}, &stubProvider{})

	w := do(t, s, http.MethodGet, "/watch?v=abc")
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, `<iframe src="https://www.youtube-nocookie.com/embed/abc?autoplay=1"`)
	assert.NotContains(t, page, "<video")
	assert.Contains(t, page, "No comments.")
}

func TestWatchPage_Errors(t *testing.T) {
	s := newTestServer(t, &stubResolver{err: resolver.ErrNoBackends}, &stubProvider{})

	w := do(t, s, http.MethodGet, "/video/abc")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "No video backends are available")

	w = do(t, s, http.MethodGet, "/watch")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexRedirectsQuery(t *testing.T) {
	s := newTestServer(t, &stubResolver{}, &stubProvider{})

	w := do(t, s, http.MethodGet, "/?v=abc")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/video/abc", w.Header().Get("Location"))

	w = do(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/watch"`)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, &stubResolver{}, &stubProvider{})

	w := do(t, s, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = do(t, s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestEndpointsList(t *testing.T) {
	at := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	prov := &stubProvider{snap: endpoints.Snapshot{
		List:      endpoints.List{"https://a.example", "https://b.example"},
		Source:    "health-checker",
		UpdatedAt: at,
	}}
	s := newTestServer(t, &stubResolver{}, prov)

	w := do(t, s, http.MethodGet, "/api/endpoints")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"endpoints":["https://a.example","https://b.example"],"source":"health-checker","updatedAt":"2025-04-01T10:00:00Z"}`, w.Body.String())

	s = newTestServer(t, &stubResolver{}, &stubProvider{})
	w = do(t, s, http.MethodGet, "/api/endpoints")
	assert.JSONEq(t, `{"endpoints":[]}`, w.Body.String())
}

func TestEndpointsRefresh(t *testing.T) {
	fail := &upstream.FetchError{Sentinel: upstream.ErrTimeout, Endpoint: "https://checker.example", Path: "/"}
	prov := &stubProvider{
		snap: endpoints.Snapshot{List: endpoints.List{"https://a.example"}, Source: "static"},
		refresh: endpoints.RefreshResult{
			Replaced: true,
			Sources: []endpoints.SourceResult{
				{Source: "static", Count: 1},
				{Source: "health-checker", Err: fail},
			},
		},
	}
	s := newTestServer(t, &stubResolver{}, prov)

	w := do(t, s, http.MethodPost, "/api/endpoints/refresh")
	require.Equal(t, http.StatusOK, w.Code)

	var body refreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Replaced)
	require.Len(t, body.Sources, 2)
	assert.Equal(t, "timeout", body.Sources[1].Kind)
	assert.Equal(t, []string{"https://a.example"}, body.Current.Endpoints)

	prov.refreshErr = endpoints.ErrNoUsableSource
	prov.refresh.Replaced = false
	w = do(t, s, http.MethodPost, "/api/endpoints/refresh")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	prov.refreshErr = endpoints.ErrNoSources
	w = do(t, s, http.MethodPost, "/api/endpoints/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodGet, "/api/endpoints/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestProbesAndMetrics(t *testing.T) {
	cache := endpoints.NewCache()
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewEndpointsChecker(cache, time.Hour))

	s, err := New(Config{}, Deps{Resolver: &stubResolver{}, Endpoints: &stubProvider{}, Health: hm})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/readyz").Code)

	_, err = cache.Replace(endpoints.List{"https://a.example"}, "static")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz").Code)

	w := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vidgate_http_requests_in_flight")
}

func TestRateLimitSparesProbes(t *testing.T) {
	s, err := New(Config{RateLimitRPM: 1}, Deps{Resolver: &stubResolver{out: streamOutcome()}, Endpoints: &stubProvider{}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/watch/abc").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/api/watch/abc").Code)
	for range 3 {
		assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz").Code)
	}
}

func TestSecurityHeadersOnPages(t *testing.T) {
	s := newTestServer(t, &stubResolver{out: streamOutcome()}, &stubProvider{})
	w := do(t, s, http.MethodGet, "/video/abc")
	assert.True(t, strings.Contains(w.Header().Get("Content-Security-Policy"), "youtube-nocookie"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
