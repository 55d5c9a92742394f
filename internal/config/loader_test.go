// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/vidgate/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithEnvEndpoints(t *testing.T) {
	t.Setenv(EnvEndpoints, "https://a.example, https://b.example,,")

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, ":3000", cfg.Server.ListenAddr)
	assert.Equal(t, 4*time.Second, cfg.Resolver.VideoTimeout)
	assert.Equal(t, 4*time.Second, cfg.Resolver.CommentsTimeout)
	assert.Equal(t, 15*time.Second, cfg.Resolver.OverallDeadline)
	assert.Equal(t, 200*time.Millisecond, cfg.Resolver.SweepPause)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Endpoints.Static)
}

func TestLoadZeroSweepPause(t *testing.T) {
	t.Setenv(EnvEndpoints, "https://a.example")
	t.Setenv(EnvSweepPause, "0")

	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Resolver.SweepPause)
}

func TestLoadRequiresASource(t *testing.T) {
	_, err := NewLoader("", "dev").Load()
	require.Error(t, err)

	var ve validate.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Endpoints", ve.Errors()[0].Field)
}

func TestLoadPrecedenceEnvOverFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
server:
  listenAddr: ":8080"
resolver:
  videoTimeout: 6s
  overallDeadline: 18s
endpoints:
  static:
    - https://file.example
  healthCheckerURL: https://checker.example/api
`)
	t.Setenv(EnvVideoTimeout, "9000")
	t.Setenv(EnvListen, "127.0.0.1:9090")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.ListenAddr)
	assert.Equal(t, 9*time.Second, cfg.Resolver.VideoTimeout)
	assert.Equal(t, 18*time.Second, cfg.Resolver.OverallDeadline)
	assert.Equal(t, 4*time.Second, cfg.Resolver.CommentsTimeout)
	assert.Equal(t, []string{"https://file.example"}, cfg.Endpoints.Static)
	assert.Equal(t, "https://checker.example/api", cfg.Endpoints.HealthCheckerURL)

	assert.Contains(t, l.ConsumedEnvKeys, EnvVideoTimeout)
	assert.Contains(t, l.ConsumedEnvKeys, EnvRedisAddr)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "endpoints:\n  static: [https://a.example]\n  bogus: 1\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoadRejectsNonYAML(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "config.json"), "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv(EnvEndpointsFile, "/etc/vidgate/endpoints.txt")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server, cfg.Server)
	assert.Equal(t, "/etc/vidgate/endpoints.txt", cfg.Endpoints.File)
}

func TestConversions(t *testing.T) {
	cfg := Defaults()
	cfg.Version = "v9"
	cfg.Tracing.Enabled = true

	rt := cfg.ResolverTimings()
	assert.Equal(t, cfg.Resolver.VideoTimeout, rt.VideoTimeout)
	assert.Equal(t, cfg.Resolver.OverallDeadline, rt.OverallDeadline)

	tc := cfg.Telemetry()
	assert.True(t, tc.Enabled)
	assert.Equal(t, "vidgate", tc.ServiceName)
	assert.Equal(t, "v9", tc.ServiceVersion)
	assert.Equal(t, "grpc", tc.ExporterType)
}
