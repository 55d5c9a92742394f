// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/vidgate/internal/endpoints"
)

// SnapshotReader exposes the currently published endpoint list.
type SnapshotReader interface {
	Snapshot() endpoints.Snapshot
}

// EndpointsChecker reports on the endpoint list the resolver reads from.
// An empty list is unhealthy because every resolution would fail with 503.
// A list older than staleAfter is degraded: still usable, but the refresh
// sources have not produced anything for a while.
type EndpointsChecker struct {
	reader     SnapshotReader
	staleAfter time.Duration
	now        func() time.Time
}

// NewEndpointsChecker creates a checker. A staleAfter of zero disables the age check.
func NewEndpointsChecker(reader SnapshotReader, staleAfter time.Duration) *EndpointsChecker {
	return &EndpointsChecker{
		reader:     reader,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (c *EndpointsChecker) Name() string {
	return "endpoints"
}

func (c *EndpointsChecker) Check(_ context.Context) CheckResult {
	snap := c.reader.Snapshot()
	if len(snap.List) == 0 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no endpoints loaded",
		}
	}

	if c.staleAfter > 0 && !snap.UpdatedAt.IsZero() {
		if age := c.now().Sub(snap.UpdatedAt); age > c.staleAfter {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("%d endpoints from %s, not refreshed for %s", len(snap.List), snap.Source, age.Truncate(time.Second)),
			}
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d endpoints from %s", len(snap.List), snap.Source),
	}
}
