// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"context"
	"time"

	"github.com/ManuGH/vidgate/internal/endpoints"
	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/metrics"
	"github.com/ManuGH/vidgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default timings.
const (
	DefaultVideoTimeout    = 4 * time.Second
	DefaultCommentsTimeout = 4 * time.Second
	DefaultOverallDeadline = 15 * time.Second
)

// Config holds the timing budget of one resolution.
type Config struct {
	VideoTimeout    time.Duration
	CommentsTimeout time.Duration
	OverallDeadline time.Duration
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		VideoTimeout:    DefaultVideoTimeout,
		CommentsTimeout: DefaultCommentsTimeout,
		OverallDeadline: DefaultOverallDeadline,
	}
}

func (c Config) withDefaults() Config {
	if c.VideoTimeout <= 0 {
		c.VideoTimeout = DefaultVideoTimeout
	}
	if c.CommentsTimeout <= 0 {
		c.CommentsTimeout = DefaultCommentsTimeout
	}
	if c.OverallDeadline <= 0 {
		c.OverallDeadline = DefaultOverallDeadline
	}
	return c
}

// EndpointLister supplies the current endpoint list without blocking.
type EndpointLister interface {
	Current() endpoints.List
}

// Outcome is the composite result of one resolution.
type Outcome struct {
	Video    Video               `json:"video"`
	Comments Comments            `json:"comments"`
	Winner   *endpoints.Endpoint `json:"winner,omitempty"`
	EmbedURL string              `json:"embedUrl,omitempty"`
}

// Fallback reports whether the outcome carries the sentinel locator.
func (o Outcome) Fallback() bool {
	return o.Video.IsFallback()
}

// FallbackOutcome is the degraded outcome for videoID with nothing resolved.
func FallbackOutcome(videoID string) Outcome {
	return Outcome{
		Video:    Normalize(nil),
		Comments: EmptyComments(),
		EmbedURL: EmbedURL(videoID),
	}
}

// Orchestrator resolves video ids against the current endpoint list.
type Orchestrator struct {
	lister   EndpointLister
	resolver *Resolver
	cfg      Config
	tracer   trace.Tracer
}

// NewOrchestrator wires a list supplier and a resolver under cfg.
func NewOrchestrator(lister EndpointLister, r *Resolver, cfg Config) *Orchestrator {
	if r == nil {
		r = New(nil)
	}
	return &Orchestrator{
		lister:   lister,
		resolver: r,
		cfg:      cfg.withDefaults(),
		tracer:   telemetry.Tracer("github.com/ManuGH/vidgate/internal/resolver"),
	}
}

// Config returns the effective timings.
func (o *Orchestrator) Config() Config { return o.cfg }

// Resolve produces the outcome for videoID. The endpoint list is read once
// and used for the whole resolution. The only errors are ErrInvalidVideoID
// and ErrNoBackends; both come with the fallback outcome so that callers may
// still render a degraded page.
func (o *Orchestrator) Resolve(ctx context.Context, videoID string) (Outcome, error) {
	if !ValidVideoID(videoID) {
		return FallbackOutcome(videoID), ErrInvalidVideoID
	}

	logger := vglog.WithComponentFromContext(ctx, "resolver")

	list := o.lister.Current()
	if len(list) == 0 {
		metrics.RecordResolution("no_backends", 0, 0)
		logger.Error().
			Str(vglog.FieldEvent, "resolve.no_backends").
			Str(vglog.FieldVideoID, videoID).
			Msg("endpoint list is empty")
		return FallbackOutcome(videoID), ErrNoBackends
	}

	ctx, span := o.tracer.Start(ctx, "resolver.resolve",
		trace.WithAttributes(telemetry.ResolveAttributes(videoID, len(list))...))
	defer span.End()

	start := time.Now()
	res := o.resolver.Primary(ctx, videoID, list, o.cfg.VideoTimeout, o.cfg.OverallDeadline)
	elapsed := time.Since(start)

	seen := res.Video
	if seen == nil {
		seen = res.Partial
	}
	out := Outcome{Video: Normalize(seen), Winner: res.Winner}

	label := "stream"
	switch {
	case res.Winner != nil:
	case ctx.Err() != nil:
		label = "canceled"
	default:
		label = "fallback"
	}
	if out.Fallback() {
		out.EmbedURL = EmbedURL(videoID)
	}
	metrics.RecordResolution(label, elapsed, res.Sweeps)

	out.Comments = o.resolver.FetchSecondary(ctx, videoID, res.Winner, o.cfg.CommentsTimeout)

	span.SetAttributes(
		attribute.String(telemetry.OutcomeKey, label),
		attribute.Int(telemetry.AttemptKey, res.Attempts),
		attribute.Int(telemetry.SweepKey, res.Sweeps),
	)

	ev := logger.Info().
		Str(vglog.FieldEvent, "resolve.done").
		Str(vglog.FieldVideoID, videoID).
		Str(vglog.FieldOutcome, label).
		Int(vglog.FieldAttempt, res.Attempts).
		Int(vglog.FieldSweep, res.Sweeps).
		Int(vglog.FieldCount, len(out.Comments.Comments)).
		Int64(vglog.FieldDuration, elapsed.Milliseconds())
	if res.Winner != nil {
		ev = ev.Str(vglog.FieldEndpoint, res.Winner.String())
	}
	ev.Msg("resolution finished")

	return out, nil
}
