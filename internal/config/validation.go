// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/vidgate/internal/validate"
)

var (
	logLevels = []string{"trace", "debug", "info", "warn", "error"}
	exporters = []string{"grpc", "http"}
	schemes   = []string{"http", "https"}
)

// Validate checks the merged configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel), logLevels)

	v.ListenAddr("Server.ListenAddr", cfg.Server.ListenAddr)
	v.DurationRange("Server.ReadTimeout", cfg.Server.ReadTimeout, time.Second, 5*time.Minute)
	v.DurationRange("Server.IdleTimeout", cfg.Server.IdleTimeout, time.Second, 30*time.Minute)
	v.DurationRange("Server.ShutdownTimeout", cfg.Server.ShutdownTimeout, time.Second, 5*time.Minute)
	v.NonNegative("Server.RateLimitRPM", cfg.Server.RateLimitRPM)

	r := cfg.Resolver
	v.DurationRange("Resolver.VideoTimeout", r.VideoTimeout, time.Second, 9*time.Second)
	v.DurationRange("Resolver.CommentsTimeout", r.CommentsTimeout, time.Second, 9*time.Second)
	v.DurationRange("Resolver.OverallDeadline", r.OverallDeadline, r.VideoTimeout, 20*time.Second)
	v.DurationRange("Resolver.SweepPause", r.SweepPause, 0, r.OverallDeadline)

	// A page render waits for the whole resolution plus comments.
	budget := r.OverallDeadline + r.CommentsTimeout
	v.Custom("Server.WriteTimeout", cfg.Server.WriteTimeout, func(val any) error {
		if d, _ := val.(time.Duration); d < budget {
			return fmt.Errorf("must cover Resolver.OverallDeadline plus Resolver.CommentsTimeout (%s)", budget)
		}
		return nil
	})

	e := cfg.Endpoints
	if len(e.Static) == 0 && e.File == "" && e.HealthCheckerURL == "" {
		v.AddError("Endpoints", "at least one of static, file or healthCheckerURL is required", nil)
	}
	for _, raw := range e.Static {
		v.URL("Endpoints.Static", raw, schemes)
	}
	if e.HealthCheckerURL != "" {
		v.URL("Endpoints.HealthCheckerURL", e.HealthCheckerURL, schemes)
	}
	if e.RefreshInterval != 0 {
		v.DurationRange("Endpoints.RefreshInterval", e.RefreshInterval, 10*time.Second, 24*time.Hour)
	}
	v.DurationRange("Endpoints.SourceTimeout", e.SourceTimeout, 100*time.Millisecond, time.Minute)
	if e.RefreshOnRequest < 0 {
		v.AddError("Endpoints.RefreshOnRequest", "cannot be negative", e.RefreshOnRequest)
	}
	v.Range("Endpoints.RedisDB", e.RedisDB, 0, 15)

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, exporters)
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		v.FloatRange("Tracing.SamplingRate", cfg.Tracing.SamplingRate, 0, 1)
	}

	return v.Err()
}
