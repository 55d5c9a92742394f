// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads vidgate configuration with precedence ENV > YAML file > defaults.
package config

import (
	"time"

	"github.com/ManuGH/vidgate/internal/resolver"
	"github.com/ManuGH/vidgate/internal/telemetry"
)

// AppConfig is the fully merged configuration.
type AppConfig struct {
	Version   string          `yaml:"-"`
	LogLevel  string          `yaml:"logLevel"`
	Server    ServerConfig    `yaml:"server"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitRPM caps requests per minute per client IP. Zero disables it.
	RateLimitRPM int `yaml:"rateLimitRPM"`
}

// ResolverConfig holds the resolution timing budget.
type ResolverConfig struct {
	VideoTimeout    time.Duration `yaml:"videoTimeout"`
	CommentsTimeout time.Duration `yaml:"commentsTimeout"`
	OverallDeadline time.Duration `yaml:"overallDeadline"`
	SweepPause      time.Duration `yaml:"sweepPause"`
	UserAgents      []string      `yaml:"userAgents"`
}

// EndpointsConfig describes where the backend list comes from. Sources are
// consulted in the order static, file, health checker; later ones take
// precedence.
type EndpointsConfig struct {
	Static           []string      `yaml:"static"`
	File             string        `yaml:"file"`
	HealthCheckerURL string        `yaml:"healthCheckerURL"`
	RefreshInterval  time.Duration `yaml:"refreshInterval"`
	SourceTimeout    time.Duration `yaml:"sourceTimeout"`
	// RefreshOnRequest is the minimum spacing of request-triggered refreshes. Zero disables them.
	RefreshOnRequest time.Duration `yaml:"refreshOnRequest"`
	SnapshotPath     string        `yaml:"snapshotPath"`
	RedisAddr        string        `yaml:"redisAddr"`
	RedisPassword    string        `yaml:"redisPassword"`
	RedisDB          int           `yaml:"redisDB"`
	RedisKey         string        `yaml:"redisKey"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    40 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPM:    120,
		},
		Resolver: ResolverConfig{
			VideoTimeout:    resolver.DefaultVideoTimeout,
			CommentsTimeout: resolver.DefaultCommentsTimeout,
			OverallDeadline: resolver.DefaultOverallDeadline,
			SweepPause:      200 * time.Millisecond,
		},
		Endpoints: EndpointsConfig{
			RefreshInterval:  5 * time.Minute,
			SourceTimeout:    10 * time.Second,
			RefreshOnRequest: time.Minute,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// ResolverTimings converts the resolver section for the orchestrator.
func (c AppConfig) ResolverTimings() resolver.Config {
	return resolver.Config{
		VideoTimeout:    c.Resolver.VideoTimeout,
		CommentsTimeout: c.Resolver.CommentsTimeout,
		OverallDeadline: c.Resolver.OverallDeadline,
	}
}

// Telemetry converts the tracing section for the telemetry provider.
func (c AppConfig) Telemetry() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Tracing.Enabled,
		ServiceName:    "vidgate",
		ServiceVersion: c.Version,
		Environment:    c.Tracing.Environment,
		ExporterType:   c.Tracing.Exporter,
		Endpoint:       c.Tracing.Endpoint,
		SamplingRate:   c.Tracing.SamplingRate,
	}
}
