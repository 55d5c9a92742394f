// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package endpoints

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrNoSources is returned by Refresh when no source is configured.
	ErrNoSources = errors.New("endpoints: no sources configured")
	// ErrNoUsableSource is returned by Refresh when every source failed or was empty.
	ErrNoUsableSource = errors.New("endpoints: no source produced a usable list")
)

// Refresh trigger origins, used as metric labels.
const (
	OriginStartup  = "startup"
	OriginInterval = "interval"
	OriginRequest  = "request"
	OriginFile     = "file"
	OriginManual   = "manual"
)

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	// Sources in precedence order, lowest first.
	Sources []Source
	// Store persists the last known-good list. Optional.
	Store Store
	// SourceTimeout bounds each source fetch.
	SourceTimeout time.Duration
	// TriggerEvery is the minimum spacing of admitted TriggerRefresh calls.
	// Zero disables per-request refreshes.
	TriggerEvery time.Duration
}

// SourceResult reports what one source produced during a refresh.
type SourceResult struct {
	Source string
	Count  int
	Err    error
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Snapshot Snapshot
	Replaced bool
	Sources  []SourceResult
}

// Provider keeps the endpoint Cache filled from its sources.
type Provider struct {
	cache         *Cache
	sources       []Source
	store         Store
	sourceTimeout time.Duration
	limiter       *rate.Limiter
	group         singleflight.Group
	inflight      sync.WaitGroup
	logger        zerolog.Logger
}

// NewProvider creates a provider feeding cache.
func NewProvider(cache *Cache, cfg ProviderConfig) *Provider {
	if cache == nil {
		cache = NewCache()
	}
	timeout := cfg.SourceTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(0, 0)
	if cfg.TriggerEvery > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.TriggerEvery), 1)
	}
	return &Provider{
		cache:         cache,
		sources:       cfg.Sources,
		store:         cfg.Store,
		sourceTimeout: timeout,
		limiter:       limiter,
		logger:        vglog.WithComponent("endpoints"),
	}
}

// Cache returns the cache this provider writes to.
func (p *Provider) Cache() *Cache { return p.cache }

// Current returns the latest list without blocking on refreshes.
func (p *Provider) Current() List { return p.cache.Current() }

// Snapshot returns the latest snapshot.
func (p *Provider) Snapshot() Snapshot { return p.cache.Snapshot() }

// Seed loads the persisted snapshot into an empty cache.
func (p *Provider) Seed(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	snap, err := p.store.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load endpoint snapshot: %w", err)
	}
	restored, err := p.cache.Restore(snap)
	if err != nil {
		return err
	}
	if restored {
		metrics.SetEndpointsCurrent(len(snap.List), snap.UpdatedAt)
		p.logger.Info().
			Str(vglog.FieldEvent, "endpoints.seeded").
			Int(vglog.FieldCount, len(snap.List)).
			Str(vglog.FieldSource, snap.Source).
			Time("updated_at", snap.UpdatedAt).
			Msg("restored endpoint list from snapshot")
	}
	return nil
}

// Refresh consults every source in precedence order and installs the list of
// the highest-precedence source that produced a non-empty list. Sources that
// fail or come back empty never erase the cached list. Concurrent calls share
// one pass. The pass is detached from ctx and bounded by its own timeout, so a
// caller going away only stops that caller from waiting.
func (p *Provider) Refresh(ctx context.Context) (RefreshResult, error) {
	ch := p.group.DoChan("refresh", func() (any, error) {
		pass, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.passTimeout())
		defer cancel()
		return p.refresh(pass)
	})
	select {
	case <-ctx.Done():
		return RefreshResult{Snapshot: p.cache.Snapshot()}, ctx.Err()
	case r := <-ch:
		res, _ := r.Val.(RefreshResult)
		return res, r.Err
	}
}

// passTimeout bounds one refresh pass: every source in turn plus the snapshot save.
func (p *Provider) passTimeout() time.Duration {
	return p.sourceTimeout * time.Duration(len(p.sources)+1)
}

func (p *Provider) refresh(ctx context.Context) (RefreshResult, error) {
	if len(p.sources) == 0 {
		return RefreshResult{Snapshot: p.cache.Snapshot()}, ErrNoSources
	}

	var (
		res     RefreshResult
		best    List
		bestSrc string
		errs    []error
	)
	for _, src := range p.sources {
		list, err := p.fetchSource(ctx, src)
		sr := SourceResult{Source: src.Name(), Count: len(list), Err: err}
		res.Sources = append(res.Sources, sr)

		switch {
		case err != nil:
			metrics.RecordSourceRefresh(src.Name(), "error")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			p.logger.Warn().
				Err(err).
				Str(vglog.FieldEvent, "endpoints.source_failed").
				Str(vglog.FieldSource, src.Name()).
				Msg("endpoint source failed, keeping previous list")
		case len(list) == 0:
			metrics.RecordSourceRefresh(src.Name(), "empty")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), ErrEmptyList))
			p.logger.Warn().
				Str(vglog.FieldEvent, "endpoints.source_empty").
				Str(vglog.FieldSource, src.Name()).
				Msg("endpoint source returned no usable endpoints")
		default:
			metrics.RecordSourceRefresh(src.Name(), "ok")
			best, bestSrc = list, src.Name()
		}
	}

	if best == nil {
		res.Snapshot = p.cache.Snapshot()
		return res, fmt.Errorf("%w: %w", ErrNoUsableSource, errors.Join(errs...))
	}

	snap, err := p.cache.Replace(best, bestSrc)
	if err != nil {
		res.Snapshot = p.cache.Snapshot()
		return res, err
	}
	res.Snapshot = snap
	res.Replaced = true
	metrics.SetEndpointsCurrent(len(snap.List), snap.UpdatedAt)

	p.logger.Info().
		Str(vglog.FieldEvent, "endpoints.refresh_ok").
		Str(vglog.FieldSource, bestSrc).
		Int(vglog.FieldCount, len(snap.List)).
		Msg("endpoint list replaced")

	if p.store != nil {
		if err := p.store.Save(ctx, snap); err != nil {
			p.logger.Warn().
				Err(err).
				Str(vglog.FieldEvent, "endpoints.snapshot_save_failed").
				Msg("failed to persist endpoint snapshot")
		}
	}
	return res, nil
}

func (p *Provider) fetchSource(ctx context.Context, src Source) (List, error) {
	ctx, cancel := context.WithTimeout(ctx, p.sourceTimeout)
	defer cancel()
	return src.Fetch(ctx)
}

// TriggerRefresh starts a background refresh unless one was admitted too
// recently. It never blocks and reports whether a refresh was started.
func (p *Provider) TriggerRefresh(ctx context.Context, origin string) bool {
	admitted := p.limiter.Allow()
	metrics.RecordRefreshTrigger(origin, admitted)
	if !admitted {
		return false
	}
	p.refreshAsync(ctx, origin)
	return true
}

func (p *Provider) refreshAsync(ctx context.Context, origin string) {
	bg := context.WithoutCancel(ctx)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if _, err := p.Refresh(bg); err != nil {
			p.logger.Debug().
				Err(err).
				Str(vglog.FieldEvent, "endpoints.refresh_failed").
				Str("origin", origin).
				Msg("background endpoint refresh failed")
		}
	}()
}

// Wait blocks until background refreshes started by TriggerRefresh finish.
func (p *Provider) Wait() {
	p.inflight.Wait()
}

type watchable interface {
	Watch(ctx context.Context, onChange func()) error
}

// Run refreshes once, then every interval until ctx is done. Sources that can
// watch their backing file trigger an extra refresh on change.
func (p *Provider) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, src := range p.sources {
		w, ok := src.(watchable)
		if !ok {
			continue
		}
		g.Go(func() error {
			err := w.Watch(ctx, func() {
				metrics.RecordRefreshTrigger(OriginFile, true)
				p.refreshAsync(ctx, OriginFile)
			})
			if err != nil {
				p.logger.Warn().
					Err(err).
					Str(vglog.FieldEvent, "endpoints.watch_failed").
					Str(vglog.FieldSource, src.Name()).
					Msg("endpoint source watch stopped")
			}
			return nil
		})
	}

	g.Go(func() error {
		p.runOnce(ctx, OriginStartup)
		if interval <= 0 {
			return nil
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				p.runOnce(ctx, OriginInterval)
			}
		}
	})

	err := g.Wait()
	p.Wait()
	return err
}

func (p *Provider) runOnce(ctx context.Context, origin string) {
	metrics.RecordRefreshTrigger(origin, true)
	if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn().
			Err(err).
			Str(vglog.FieldEvent, "endpoints.refresh_failed").
			Str("origin", origin).
			Int(vglog.FieldCount, len(p.Current())).
			Msg("endpoint refresh failed, serving last known list")
	}
}
