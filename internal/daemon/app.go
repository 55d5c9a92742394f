// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/vidgate/internal/log"
)

// Refresher keeps the endpoint list current until its context ends.
type Refresher interface {
	Run(ctx context.Context, interval time.Duration) error
}

// App owns the long-lived runtime: the endpoint refresher and the HTTP
// server managed by Manager. Both stop when ctx is canceled.
type App struct {
	logger    zerolog.Logger
	manager   Manager
	refresher Refresher
	interval  time.Duration
}

// NewApp creates a new App. refresher may be nil.
func NewApp(logger zerolog.Logger, manager Manager, refresher Refresher, interval time.Duration) *App {
	return &App{
		logger:    logger,
		manager:   manager,
		refresher: refresher,
		interval:  interval,
	}
}

// Run blocks until ctx is canceled or the server fails. A server failure
// stops the refresher too.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.refresher != nil {
		g.Go(func() error {
			if err := a.refresher.Run(ctx, a.interval); err != nil {
				a.logger.Warn().
					Err(err).
					Str(log.FieldEvent, "endpoints.refresher_stopped").
					Msg("endpoint refresher stopped")
			}
			return nil
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
