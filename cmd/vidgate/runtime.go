// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/vidgate/internal/config"
	"github.com/ManuGH/vidgate/internal/endpoints"
	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/resolver"
	"github.com/ManuGH/vidgate/internal/upstream"
)

// runtime is the resolution core shared by every command.
type runtime struct {
	fetcher      *upstream.Fetcher
	provider     *endpoints.Provider
	orchestrator *resolver.Orchestrator
	closeStore   func() error
}

// buildSources returns the configured sources lowest precedence first:
// static, then file, then the remote health checker.
func buildSources(cfg config.EndpointsConfig, fetcher *upstream.Fetcher) []endpoints.Source {
	var sources []endpoints.Source
	if len(cfg.Static) > 0 {
		sources = append(sources, endpoints.NewStaticSource(cfg.Static))
	}
	if cfg.File != "" {
		sources = append(sources, endpoints.NewFileSource(cfg.File))
	}
	if cfg.HealthCheckerURL != "" {
		sources = append(sources, endpoints.NewHTTPSource(cfg.HealthCheckerURL, fetcher, cfg.SourceTimeout))
	}
	return sources
}

// openStore picks Redis when an address is configured, else the local file
// snapshot, else nothing.
func openStore(ctx context.Context, cfg config.EndpointsConfig) (endpoints.Store, func() error, error) {
	noop := func() error { return nil }
	switch {
	case cfg.RedisAddr != "":
		rs, err := endpoints.NewRedisStore(ctx, endpoints.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, noop, err
		}
		return rs, rs.Close, nil
	case cfg.SnapshotPath != "":
		return endpoints.NewFileStore(cfg.SnapshotPath), noop, nil
	default:
		return nil, noop, nil
	}
}

func newRuntime(ctx context.Context, cfg config.AppConfig) *runtime {
	logger := vglog.WithComponent("cli")

	var opts []upstream.Option
	if len(cfg.Resolver.UserAgents) > 0 {
		opts = append(opts, upstream.WithUserAgents(cfg.Resolver.UserAgents))
	}
	fetcher := upstream.NewFetcher(upstream.NewClient(), opts...)

	store, closeStore, err := openStore(ctx, cfg.Endpoints)
	if err != nil {
		// A missing snapshot store only costs the warm start.
		logger.Warn().
			Err(err).
			Str(vglog.FieldEvent, "endpoints.store_unavailable").
			Msg("snapshot store unavailable, continuing without persistence")
	}

	provider := endpoints.NewProvider(endpoints.NewCache(), endpoints.ProviderConfig{
		Sources:       buildSources(cfg.Endpoints, fetcher),
		Store:         store,
		SourceTimeout: cfg.Endpoints.SourceTimeout,
		TriggerEvery:  cfg.Endpoints.RefreshOnRequest,
	})
	if err := provider.Seed(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str(vglog.FieldEvent, "endpoints.seed_failed").
			Msg("could not restore endpoint snapshot")
	}

	res := resolver.New(fetcher, resolver.WithSweepPause(cfg.Resolver.SweepPause))
	return &runtime{
		fetcher:      fetcher,
		provider:     provider,
		orchestrator: resolver.NewOrchestrator(provider, res, cfg.ResolverTimings()),
		closeStore:   closeStore,
	}
}

// refreshOnce fills the list synchronously for one-shot commands. A failed
// refresh is fine as long as a seeded list is available.
func (rt *runtime) refreshOnce(ctx context.Context) (endpoints.RefreshResult, error) {
	res, err := rt.provider.Refresh(ctx)
	if err != nil && len(rt.provider.Current()) == 0 {
		return res, fmt.Errorf("no endpoints available: %w", err)
	}
	return res, nil
}

func (rt *runtime) close() error {
	rt.provider.Wait()
	if rt.closeStore == nil {
		return nil
	}
	if err := rt.closeStore(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
