// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "vidgate-test", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderInvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "vidgate-test", ExporterType: "invalid"})
	require.Error(t, err)
	assert.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestNewProviderHTTPExporter(t *testing.T) {
	// The HTTP exporter connects lazily, so construction works without a collector.
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "vidgate-test",
		ExporterType: "http",
		Endpoint:     "127.0.0.1:4318",
		SamplingRate: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	require.NotNil(t, provider.tp)

	_, span := Tracer("test").Start(context.Background(), "recorded")
	assert.True(t, span.IsRecording())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = provider.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}
