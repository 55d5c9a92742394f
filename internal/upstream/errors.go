// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package upstream

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrTimeout     = errors.New("upstream: attempt timed out")
	ErrTransport   = errors.New("upstream: host unreachable or transport failure")
	ErrCanceled    = errors.New("upstream: attempt canceled by caller")
	ErrStatus      = errors.New("upstream: unexpected HTTP status")
	ErrBadResponse = errors.New("upstream: invalid response format or malformed data")
)

// FetchError wraps a sentinel error with the attempt it belongs to.
type FetchError struct {
	Sentinel error
	Endpoint string
	Path     string
	Status   int
	Err      error // lower-level cause (net.Error, json.SyntaxError, ...)
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s%s: %v", e.Endpoint, e.Path, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// Classify maps an attempt error to a short outcome label for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
