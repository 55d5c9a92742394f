// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/vidgate/internal/endpoints"
	"github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/resolver"
)

// watchResponse is the JSON form of an outcome.
type watchResponse struct {
	VideoID  string `json:"videoId"`
	Fallback bool   `json:"fallback"`
	resolver.Outcome
}

// resolve runs one resolution and nudges the endpoint refresh. The refresh
// never delays the response: it runs detached and is throttled by the provider.
func (s *Server) resolve(r *http.Request, videoID string) (resolver.Outcome, error) {
	s.deps.Endpoints.TriggerRefresh(r.Context(), endpoints.OriginRequest)
	return s.deps.Resolver.Resolve(r.Context(), videoID)
}

// statusFor maps resolution errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, resolver.ErrInvalidVideoID):
		return http.StatusBadRequest, "invalid_video_id"
	case errors.Is(err, resolver.ErrNoBackends):
		return http.StatusServiceUnavailable, "no_backends"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) handleWatchJSON(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	out, err := s.resolve(r, videoID)
	if err != nil {
		code, kind := statusFor(err)
		writeError(w, r, code, kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, watchResponse{
		VideoID:  videoID,
		Fallback: out.Fallback(),
		Outcome:  out,
	})
}

func (s *Server) handleWatchPage(w http.ResponseWriter, r *http.Request) {
	s.renderWatch(w, r, chi.URLParam(r, "id"))
}

// handleWatchQuery serves the familiar /watch?v= form.
func (s *Server) handleWatchQuery(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("v")
	if videoID == "" {
		s.renderError(w, r, http.StatusBadRequest, "A video id is required.")
		return
	}
	s.renderWatch(w, r, videoID)
}

func (s *Server) renderWatch(w http.ResponseWriter, r *http.Request, videoID string) {
	out, err := s.resolve(r, videoID)
	if err != nil {
		code, _ := statusFor(err)
		msg := "No video backends are available right now. Please try again later."
		if code == http.StatusBadRequest {
			msg = "That does not look like a valid video id."
		}
		s.renderError(w, r, code, msg)
		return
	}

	if r.Context().Err() != nil {
		log.FromContext(r.Context()).Debug().
			Str(log.FieldEvent, "watch.client_gone").
			Str(log.FieldVideoID, videoID).
			Msg("client left before the page was rendered")
		return
	}

	s.renderPage(w, r, http.StatusOK, "watch.html", newWatchView(r, videoID, out))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("v"); v != "" {
		http.Redirect(w, r, "/video/"+url.PathEscape(v), http.StatusFound)
		return
	}
	s.renderPage(w, r, http.StatusOK, "index.html", baseView{Title: "vidgate"})
}
