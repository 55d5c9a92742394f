// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/vidgate/internal/endpoints"
	"github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/metrics"
	"github.com/ManuGH/vidgate/internal/upstream"
)

type snapshotResponse struct {
	Endpoints []string   `json:"endpoints"`
	Source    string     `json:"source,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type sourceResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

type refreshResponse struct {
	Replaced bool             `json:"replaced"`
	Current  snapshotResponse `json:"current"`
	Sources  []sourceResponse `json:"sources"`
}

func newSnapshotResponse(s endpoints.Snapshot) snapshotResponse {
	resp := snapshotResponse{Endpoints: s.List.Strings(), Source: s.Source}
	if resp.Endpoints == nil {
		resp.Endpoints = []string{}
	}
	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}

func (s *Server) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newSnapshotResponse(s.deps.Endpoints.Snapshot()))
}

// handleEndpointsRefresh runs a synchronous refresh of every source. A refresh
// where no source produced a list still answers 502 with the per-source
// results; the published list is untouched in that case.
func (s *Server) handleEndpointsRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	metrics.RecordRefreshTrigger(endpoints.OriginManual, true)

	res, err := s.deps.Endpoints.Refresh(r.Context())
	body := refreshResponse{
		Replaced: res.Replaced,
		Current:  newSnapshotResponse(s.deps.Endpoints.Snapshot()),
		Sources:  make([]sourceResponse, 0, len(res.Sources)),
	}
	for _, src := range res.Sources {
		sr := sourceResponse{Name: src.Source, Count: src.Count}
		if src.Err != nil {
			sr.Error = src.Err.Error()
			sr.Kind = upstream.Classify(src.Err)
		}
		body.Sources = append(body.Sources, sr)
	}

	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, endpoints.ErrNoSources) {
			code = http.StatusServiceUnavailable
		}
		logger.Warn().Err(err).
			Str(log.FieldEvent, "endpoints.manual_refresh_failed").
			Msg("manual endpoint refresh failed")
		writeJSON(w, code, body)
		return
	}

	logger.Info().
		Str(log.FieldEvent, "endpoints.manual_refresh").
		Bool("replaced", res.Replaced).
		Int(log.FieldCount, len(body.Current.Endpoints)).
		Msg("manual endpoint refresh")
	writeJSON(w, http.StatusOK, body)
}
