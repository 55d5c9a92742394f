// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvListen           = "VIDGATE_LISTEN"
	EnvReadTimeout      = "VIDGATE_READ_TIMEOUT"
	EnvWriteTimeout     = "VIDGATE_WRITE_TIMEOUT"
	EnvIdleTimeout      = "VIDGATE_IDLE_TIMEOUT"
	EnvShutdownTimeout  = "VIDGATE_SHUTDOWN_TIMEOUT"
	EnvRateLimitRPM     = "VIDGATE_RATE_LIMIT_RPM"
	EnvLogLevel         = "VIDGATE_LOG_LEVEL"
	EnvVideoTimeout     = "VIDGATE_VIDEO_TIMEOUT"
	EnvCommentsTimeout  = "VIDGATE_COMMENTS_TIMEOUT"
	EnvOverallDeadline  = "VIDGATE_OVERALL_DEADLINE"
	EnvSweepPause       = "VIDGATE_SWEEP_PAUSE"
	EnvUserAgents       = "VIDGATE_USER_AGENTS"
	EnvEndpoints        = "VIDGATE_ENDPOINTS"
	EnvEndpointsFile    = "VIDGATE_ENDPOINTS_FILE"
	EnvHealthChecker    = "VIDGATE_HEALTH_CHECKER_URL"
	EnvRefreshInterval  = "VIDGATE_REFRESH_INTERVAL"
	EnvSourceTimeout    = "VIDGATE_SOURCE_TIMEOUT"
	EnvRefreshOnRequest = "VIDGATE_REFRESH_ON_REQUEST_RATE"
	EnvSnapshotPath     = "VIDGATE_SNAPSHOT_PATH"
	EnvRedisAddr        = "VIDGATE_REDIS_ADDR"
	EnvRedisPassword    = "VIDGATE_REDIS_PASSWORD"
	EnvRedisDB          = "VIDGATE_REDIS_DB"
	EnvRedisKey         = "VIDGATE_REDIS_KEY"
	EnvTracingEnabled   = "VIDGATE_TRACING_ENABLED"
	EnvTracingExporter  = "VIDGATE_TRACING_EXPORTER"
	EnvTracingEndpoint  = "VIDGATE_TRACING_ENDPOINT"
	EnvTracingSampling  = "VIDGATE_TRACING_SAMPLING_RATE"
	EnvTracingEnv       = "VIDGATE_TRACING_ENVIRONMENT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envStrings(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseStringList(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with strict parsing. Keys absent from
// the file keep their current value.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Server.ListenAddr = l.envString(EnvListen, cfg.Server.ListenAddr)
	cfg.Server.ReadTimeout = l.envDuration(EnvReadTimeout, cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration(EnvWriteTimeout, cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = l.envDuration(EnvIdleTimeout, cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.Server.ShutdownTimeout)
	cfg.Server.RateLimitRPM = l.envInt(EnvRateLimitRPM, cfg.Server.RateLimitRPM)

	cfg.Resolver.VideoTimeout = l.envDuration(EnvVideoTimeout, cfg.Resolver.VideoTimeout)
	cfg.Resolver.CommentsTimeout = l.envDuration(EnvCommentsTimeout, cfg.Resolver.CommentsTimeout)
	cfg.Resolver.OverallDeadline = l.envDuration(EnvOverallDeadline, cfg.Resolver.OverallDeadline)
	cfg.Resolver.SweepPause = l.envDuration(EnvSweepPause, cfg.Resolver.SweepPause)
	cfg.Resolver.UserAgents = l.envStrings(EnvUserAgents, cfg.Resolver.UserAgents)

	cfg.Endpoints.Static = l.envStrings(EnvEndpoints, cfg.Endpoints.Static)
	cfg.Endpoints.File = l.envString(EnvEndpointsFile, cfg.Endpoints.File)
	cfg.Endpoints.HealthCheckerURL = l.envString(EnvHealthChecker, cfg.Endpoints.HealthCheckerURL)
	cfg.Endpoints.RefreshInterval = l.envDuration(EnvRefreshInterval, cfg.Endpoints.RefreshInterval)
	cfg.Endpoints.SourceTimeout = l.envDuration(EnvSourceTimeout, cfg.Endpoints.SourceTimeout)
	cfg.Endpoints.RefreshOnRequest = l.envDuration(EnvRefreshOnRequest, cfg.Endpoints.RefreshOnRequest)
	cfg.Endpoints.SnapshotPath = l.envString(EnvSnapshotPath, cfg.Endpoints.SnapshotPath)
	cfg.Endpoints.RedisAddr = l.envString(EnvRedisAddr, cfg.Endpoints.RedisAddr)
	cfg.Endpoints.RedisPassword = l.envString(EnvRedisPassword, cfg.Endpoints.RedisPassword)
	cfg.Endpoints.RedisDB = l.envInt(EnvRedisDB, cfg.Endpoints.RedisDB)
	cfg.Endpoints.RedisKey = l.envString(EnvRedisKey, cfg.Endpoints.RedisKey)

	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Tracing.SamplingRate)
	cfg.Tracing.Environment = l.envString(EnvTracingEnv, cfg.Tracing.Environment)
}
