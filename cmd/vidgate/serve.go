// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vidgate/internal/api"
	"github.com/ManuGH/vidgate/internal/config"
	"github.com/ManuGH/vidgate/internal/daemon"
	"github.com/ManuGH/vidgate/internal/health"
	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/telemetry"
)

// staleFactor is how many missed refresh intervals make the list degraded.
const staleFactor = 3

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), c.cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.AppConfig) error {
	logger := vglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	rt := newRuntime(ctx, cfg)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewEndpointsChecker(rt.provider, staleFactor*cfg.Endpoints.RefreshInterval))

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = "vidgate-http"
	}
	srv, err := api.New(api.Config{
		RateLimitRPM:   cfg.Server.RateLimitRPM,
		TracingService: tracingService,
	}, api.Deps{
		Resolver:  rt.orchestrator,
		Endpoints: rt.provider,
		Health:    hm,
		Version:   cfg.Version,
	})
	if err != nil {
		return fmt.Errorf("build API server: %w", err)
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		return err
	}
	// LIFO: the store closes before the tracer flushes.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("endpoint-store", func(context.Context) error { return rt.close() })

	logger.Info().
		Str(vglog.FieldEvent, "daemon.start").
		Str("listen", cfg.Server.ListenAddr).
		Int(vglog.FieldCount, len(rt.provider.Current())).
		Dur("refresh_interval", cfg.Endpoints.RefreshInterval).
		Dur("overall_deadline", cfg.Resolver.OverallDeadline).
		Msg("starting vidgate")

	return daemon.NewApp(logger, mgr, rt.provider, cfg.Endpoints.RefreshInterval).Run(ctx)
}
