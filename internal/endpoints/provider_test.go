// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package endpoints

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	list  List
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) (List, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.list.Clone(), s.err
}

func TestRefreshHighestPrecedenceWins(t *testing.T) {
	low := &stubSource{name: "static", list: List{"https://static.example"}}
	high := &stubSource{name: "health-checker", list: List{"https://healthy.example", "https://ok.example"}}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{low, high}})

	res, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, List{"https://healthy.example", "https://ok.example"}, p.Current())
	assert.Equal(t, "health-checker", p.Snapshot().Source)
	assert.Len(t, res.Sources, 2)
}

func TestRefreshFailingHigherSourceKeepsLowerList(t *testing.T) {
	low := &stubSource{name: "static", list: List{"https://static.example"}}
	high := &stubSource{name: "health-checker", err: errors.New("connection refused")}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{low, high}})

	res, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", res.Snapshot.Source)
	assert.Equal(t, List{"https://static.example"}, p.Current())
	assert.Error(t, res.Sources[1].Err)
}

func TestRefreshFailureNeverErasesKnownGood(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://a.example"}}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{src}})
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)
	before := p.Snapshot()

	src.list = nil
	res, err := p.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoUsableSource)
	assert.ErrorIs(t, err, ErrEmptyList)
	assert.False(t, res.Replaced)
	assert.Equal(t, before, p.Snapshot())

	src.err = errors.New("boom")
	_, err = p.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoUsableSource)
	assert.Equal(t, List{"https://a.example"}, p.Current())
}

func TestRefreshWithoutSources(t *testing.T) {
	p := NewProvider(nil, ProviderConfig{})
	_, err := p.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestRefreshBoundsEachSource(t *testing.T) {
	hung := &stubSource{name: "hung", gate: make(chan struct{})}
	low := &stubSource{name: "static", list: List{"https://static.example"}}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{low, hung}, SourceTimeout: 50 * time.Millisecond})

	start := time.Now()
	res, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, res.Sources[1].Err, context.DeadlineExceeded)
	assert.Equal(t, List{"https://static.example"}, p.Current())
}

func TestConcurrentRefreshesShareOnePass(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://a.example"}, gate: make(chan struct{})}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{src}})

	errs := make(chan error, 3)
	for range 3 {
		go func() {
			_, err := p.Refresh(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the other callers time to join the in-flight pass.
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	for range 3 {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRefreshPassSurvivesCallerLeaving(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://a.example"}, gate: make(chan struct{})}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{src}, SourceTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := make(chan error, 1)
	go func() {
		_, err := p.Refresh(ctx)
		first <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	joined := make(chan error, 1)
	go func() {
		_, err := p.Refresh(context.Background())
		joined <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting for the pass")
	}

	close(src.gate)
	require.NoError(t, <-joined)
	assert.Equal(t, List{"https://a.example"}, p.Current())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCurrentDoesNotWaitForRefresh(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://new.example"}, gate: make(chan struct{})}
	cache := NewCache()
	_, err := cache.Replace(List{"https://old.example"}, "static")
	require.NoError(t, err)
	p := NewProvider(cache, ProviderConfig{Sources: []Source{src}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, List{"https://old.example"}, p.Current())
	close(src.gate)
	<-done
	assert.Equal(t, List{"https://new.example"}, p.Current())
}

func TestTriggerRefreshThrottled(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://a.example"}}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{src}, TriggerEvery: time.Hour})

	assert.True(t, p.TriggerRefresh(context.Background(), OriginRequest))
	assert.False(t, p.TriggerRefresh(context.Background(), OriginRequest))
	p.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, List{"https://a.example"}, p.Current())
}

func TestTriggerRefreshDisabled(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://a.example"}}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{src}})

	assert.False(t, p.TriggerRefresh(context.Background(), OriginRequest))
	p.Wait()
	assert.Zero(t, src.calls.Load())
}

func TestTriggerRefreshOutlivesRequestContext(t *testing.T) {
	src := &stubSource{name: "health-checker", list: List{"https://a.example"}}
	p := NewProvider(nil, ProviderConfig{Sources: []Source{src}, TriggerEvery: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, p.TriggerRefresh(ctx, OriginRequest))
	cancel()
	p.Wait()
	assert.Equal(t, List{"https://a.example"}, p.Current())
}

func TestSeedAndPersist(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "snapshot.json"))
	ctx := context.Background()

	first := NewProvider(nil, ProviderConfig{
		Sources: []Source{&stubSource{name: "health-checker", list: List{"https://a.example"}}},
		Store:   store,
	})
	require.NoError(t, first.Seed(ctx))
	assert.Nil(t, first.Current())
	_, err := first.Refresh(ctx)
	require.NoError(t, err)

	// A restart with every source down still serves the persisted list.
	second := NewProvider(nil, ProviderConfig{
		Sources: []Source{&stubSource{name: "health-checker", err: errors.New("down")}},
		Store:   store,
	})
	require.NoError(t, second.Seed(ctx))
	assert.Equal(t, List{"https://a.example"}, second.Current())
	assert.Equal(t, "health-checker", second.Snapshot().Source)

	_, err = second.Refresh(ctx)
	assert.Error(t, err)
	assert.Equal(t, List{"https://a.example"}, second.Current())
}

func TestRunRefreshesOnStartupAndFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.example\n"), 0o600))
	p := NewProvider(nil, ProviderConfig{Sources: []Source{NewFileSource(path)}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		return len(p.Current()) == 1 && p.Current()[0] == "https://a.example"
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("https://b.example\n"), 0o600)
		time.Sleep(watchDebounce + 200*time.Millisecond)
		cur := p.Current()
		return len(cur) == 1 && cur[0] == "https://b.example"
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
