// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by vidgate spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	VideoIDKey   = "vidgate.video_id"
	EndpointKey  = "vidgate.endpoint"
	ResourceKey  = "vidgate.resource"
	AttemptKey   = "vidgate.attempt"
	SweepKey     = "vidgate.sweep"
	OutcomeKey   = "vidgate.outcome"
	CandidateKey = "vidgate.candidates"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ResolveAttributes describes one resolution.
func ResolveAttributes(videoID string, candidates int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(VideoIDKey, videoID),
		attribute.Int(CandidateKey, candidates),
	}
}

// AttemptAttributes describes one bounded fetch within a resolution.
func AttemptAttributes(resource, endpoint string, attempt, sweep int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ResourceKey, resource),
		attribute.String(EndpointKey, endpoint),
	}
	if attempt > 0 {
		attrs = append(attrs, attribute.Int(AttemptKey, attempt))
	}
	if sweep > 0 {
		attrs = append(attrs, attribute.Int(SweepKey, sweep))
	}
	return attrs
}

// ErrorAttributes flags a span as failed with a short error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
