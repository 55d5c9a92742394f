// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package upstream performs single, time-bounded calls against backend endpoints.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodyBytes caps how much of a backend response is buffered.
const DefaultMaxBodyBytes int64 = 8 << 20

// Response is a fully buffered backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// OK reports whether the backend answered with HTTP 200.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// DecodeJSON unmarshals the buffered body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}

// Doer is the subset of *http.Client used by Fetcher.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher issues bounded fetches. It is safe for concurrent use.
type Fetcher struct {
	client     Doer
	userAgents []string
	maxBody    int64
	now        func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgents replaces the rotated User-Agent pool. An empty pool sends none.
func WithUserAgents(agents []string) Option {
	return func(f *Fetcher) { f.userAgents = agents }
}

// WithMaxBodyBytes caps the buffered body size.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithClock overrides the wall clock used for the boundary check.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher creates a Fetcher on top of client. A nil client uses NewClient().
func NewFetcher(client Doer, opts ...Option) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	f := &Fetcher{
		client:     client,
		userAgents: DefaultUserAgents,
		maxBody:    DefaultMaxBodyBytes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type result struct {
	resp *Response
	err  error
}

// Fetch performs one GET against endpoint+path and returns whatever settles
// first: the buffered response or the timeout. The status code is not
// inspected. A response that is only available at or after the timeout is
// reported as ErrTimeout. Fetch never retries.
//
// When the timer wins, the in-flight request is canceled and its result is
// dropped into a buffered channel nobody reads, so the caller is never blocked.
func (f *Fetcher) Fetch(ctx context.Context, endpoint, path string, timeout time.Duration) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fail := func(sentinel error, status int, cause error) error {
		return &FetchError{Sentinel: sentinel, Endpoint: endpoint, Path: path, Status: status, Err: cause}
	}

	if timeout <= 0 {
		return nil, fail(ErrTimeout, 0, errors.New("non-positive timeout"))
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(parentSentinel(ctx), 0, err)
	}

	start := f.now()
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, JoinURL(endpoint, path), nil)
	if err != nil {
		return nil, fail(ErrTransport, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := pickUserAgent(f.userAgents); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	done := make(chan result, 1)
	go func() {
		res, err := f.client.Do(req)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer func() { _ = res.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(res.Body, f.maxBody))
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{resp: &Response{
			StatusCode: res.StatusCode,
			Header:     res.Header,
			Body:       body,
		}}
	}()

	select {
	case <-attemptCtx.Done():
		return nil, f.expired(ctx, fail)
	case r := <-done:
		elapsed := f.now().Sub(start)
		if attemptCtx.Err() != nil || elapsed >= timeout {
			return nil, f.expired(ctx, fail)
		}
		if r.err != nil {
			return nil, fail(ErrTransport, 0, r.err)
		}
		r.resp.Elapsed = elapsed
		return r.resp, nil
	}
}

// expired classifies an attempt whose context ended before a usable response.
func (f *Fetcher) expired(parent context.Context, fail func(error, int, error) error) error {
	if err := parent.Err(); err != nil {
		return fail(parentSentinel(parent), 0, err)
	}
	return fail(ErrTimeout, 0, context.DeadlineExceeded)
}

// parentSentinel reports a parent deadline as a timeout and anything else as a cancel.
func parentSentinel(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCanceled
}

// JoinURL concatenates an endpoint base and a resource path with exactly one slash.
func JoinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
