// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resolver turns a video id into a playable outcome by sweeping the
// backend endpoint list under a deadline, degrading to an external embed when
// nothing qualifies, and fetching comments from the winning backend.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ManuGH/vidgate/internal/endpoints"
	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/metrics"
	"github.com/ManuGH/vidgate/internal/telemetry"
	"github.com/ManuGH/vidgate/internal/upstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Resource names used in paths, metrics and spans.
const (
	ResourceVideo    = "video"
	ResourceComments = "comments"
)

func videoPath(id string) string    { return "/api/video/" + url.PathEscape(id) }
func commentsPath(id string) string { return "/api/comments/" + url.PathEscape(id) }

// Resolver runs the primary sweep and the dependent comments fetch.
type Resolver struct {
	fetcher *upstream.Fetcher
	pause   time.Duration
	now     func() time.Time
	tracer  trace.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSweepPause sets the wait between two passes over the list.
func WithSweepPause(d time.Duration) Option {
	return func(r *Resolver) { r.pause = d }
}

// WithClock overrides the clock used for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Resolver issuing bounded fetches through fetcher.
func New(fetcher *upstream.Fetcher, opts ...Option) *Resolver {
	if fetcher == nil {
		fetcher = upstream.NewFetcher(nil)
	}
	r := &Resolver{
		fetcher: fetcher,
		now:     time.Now,
		tracer:  telemetry.Tracer("github.com/ManuGH/vidgate/internal/resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PrimaryResult is the detailed result of a primary resolution.
type PrimaryResult struct {
	// Video is the qualifying descriptor, nil when the deadline won.
	Video *Video
	// Winner produced Video.
	Winner *endpoints.Endpoint
	// Partial is the last parsed but non-qualifying descriptor, if any.
	Partial *Video
	// Attempts and Sweeps count the work done.
	Attempts int
	Sweeps   int
}

// ResolvePrimary sweeps list in order until an endpoint returns a qualifying
// descriptor or overall elapses. Each attempt is bounded by perAttempt and
// never outlives the overall deadline. It returns (nil, nil) on exhaustion.
func (r *Resolver) ResolvePrimary(ctx context.Context, videoID string, list endpoints.List, perAttempt, overall time.Duration) (*Video, *endpoints.Endpoint) {
	res := r.Primary(ctx, videoID, list, perAttempt, overall)
	return res.Video, res.Winner
}

// Primary is ResolvePrimary with attempt accounting and the last partial descriptor.
func (r *Resolver) Primary(ctx context.Context, videoID string, list endpoints.List, perAttempt, overall time.Duration) PrimaryResult {
	deadline := r.now().Add(overall)
	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	logger := vglog.WithComponentFromContext(ctx, "resolver")

	var res PrimaryResult
	for sweep, ep := range Sweep(ctx, list, deadline, r.pause, r.now) {
		res.Attempts++
		res.Sweeps = sweep

		v, err := r.attemptVideo(ctx, videoID, ep, perAttempt, res.Attempts, sweep)
		if err == nil {
			winner := ep
			res.Video, res.Winner = v, &winner
			return res
		}
		if v != nil {
			res.Partial = v
		}

		logger.Warn().
			Err(err).
			Str(vglog.FieldEvent, "resolve.attempt_failed").
			Str(vglog.FieldVideoID, videoID).
			Str(vglog.FieldEndpoint, ep.String()).
			Int(vglog.FieldAttempt, res.Attempts).
			Int(vglog.FieldSweep, sweep).
			Str(vglog.FieldOutcome, attemptOutcome(err)).
			Msg("video attempt failed, trying next endpoint")
	}
	return res
}

func (r *Resolver) attemptVideo(ctx context.Context, videoID string, ep endpoints.Endpoint, timeout time.Duration, attempt, sweep int) (*Video, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.attempt",
		trace.WithAttributes(telemetry.AttemptAttributes(ResourceVideo, ep.String(), attempt, sweep)...))
	defer span.End()

	start := r.now()
	v, err := r.fetchVideo(ctx, videoID, ep, timeout)
	outcome := attemptOutcome(err)
	metrics.RecordAttempt(ResourceVideo, ep.String(), outcome, r.now().Sub(start))

	span.SetAttributes(attribute.String(telemetry.OutcomeKey, outcome))
	if err != nil {
		span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// fetchVideo performs one attempt. A parsed descriptor without a usable
// stream is returned together with errNotQualifying.
func (r *Resolver) fetchVideo(ctx context.Context, videoID string, ep endpoints.Endpoint, timeout time.Duration) (*Video, error) {
	path := videoPath(videoID)
	resp, err := r.fetcher.Fetch(ctx, ep.String(), path, timeout)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &upstream.FetchError{Sentinel: upstream.ErrStatus, Endpoint: ep.String(), Path: path, Status: resp.StatusCode}
	}

	var v Video
	if err := resp.DecodeJSON(&v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", upstream.JoinURL(ep.String(), path), err)
	}
	if !v.Qualifies() {
		return &v, errNotQualifying
	}
	return &v, nil
}

func attemptOutcome(err error) string {
	if errors.Is(err, errNotQualifying) {
		return "not_qualifying"
	}
	return upstream.Classify(err)
}

// FetchSecondary fetches comments from winner with one bounded attempt. A nil
// winner makes no network call. Every failure yields EmptyComments.
func (r *Resolver) FetchSecondary(ctx context.Context, videoID string, winner *endpoints.Endpoint, timeout time.Duration) Comments {
	if winner == nil {
		metrics.RecordComments("skipped")
		return EmptyComments()
	}

	ctx, span := r.tracer.Start(ctx, "resolver.comments",
		trace.WithAttributes(telemetry.AttemptAttributes(ResourceComments, winner.String(), 0, 0)...))
	defer span.End()

	start := r.now()
	c, err := r.fetchComments(ctx, videoID, *winner, timeout)
	outcome := upstream.Classify(err)
	metrics.RecordAttempt(ResourceComments, winner.String(), outcome, r.now().Sub(start))
	span.SetAttributes(attribute.String(telemetry.OutcomeKey, outcome))

	if err != nil {
		metrics.RecordComments("empty")
		span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
		logger := vglog.WithComponentFromContext(ctx, "resolver")
		logger.Warn().
			Err(err).
			Str(vglog.FieldEvent, "resolve.comments_failed").
			Str(vglog.FieldVideoID, videoID).
			Str(vglog.FieldEndpoint, winner.String()).
			Str(vglog.FieldOutcome, outcome).
			Msg("comments unavailable, rendering empty list")
		return EmptyComments()
	}
	metrics.RecordComments("ok")
	return c
}

func (r *Resolver) fetchComments(ctx context.Context, videoID string, ep endpoints.Endpoint, timeout time.Duration) (Comments, error) {
	path := commentsPath(videoID)
	resp, err := r.fetcher.Fetch(ctx, ep.String(), path, timeout)
	if err != nil {
		return Comments{}, err
	}
	if !resp.OK() {
		return Comments{}, &upstream.FetchError{Sentinel: upstream.ErrStatus, Endpoint: ep.String(), Path: path, Status: resp.StatusCode}
	}
	var c Comments
	if err := resp.DecodeJSON(&c); err != nil {
		return Comments{}, fmt.Errorf("decode %s: %w", upstream.JoinURL(ep.String(), path), err)
	}
	return c.normalize(), nil
}
