// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Resolution fields
	FieldVideoID  = "video_id"
	FieldEndpoint = "endpoint"
	FieldResource = "resource"
	FieldAttempt  = "attempt"
	FieldSweep    = "sweep"
	FieldOutcome  = "outcome"
	FieldStatus   = "status"

	// Endpoint list fields
	FieldSource = "source"
	FieldCount  = "count"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRemoteAddr = "remote_addr"
	FieldDuration   = "duration_ms"
)
