// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ManuGH/vidgate/internal/log"
	"github.com/ManuGH/vidgate/internal/resolver"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page languages for number formatting; the first entry is the fallback.
var pageLanguages = language.NewMatcher([]language.Tag{
	language.English,
	language.Japanese,
	language.German,
	language.French,
})

func parsePages() (*template.Template, error) {
	t, err := template.New("pages").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return t, nil
}

// printerFor picks a number printer from the Accept-Language header.
func printerFor(r *http.Request) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := pageLanguages.Match(tags...)
	return message.NewPrinter(tag)
}

type baseView struct {
	Title     string
	RequestID string
}

type errorView struct {
	baseView
	Status  int
	Message string
}

type commentView struct {
	Author    string
	Avatar    string
	Content   string
	Published string
	Likes     string
}

type watchView struct {
	baseView
	VideoID      string
	StreamURL    string
	EmbedURL     string
	Fallback     bool
	Description  string
	ChannelName  string
	ChannelID    string
	ChannelImage string
	Views        string
	Likes        string
	CommentCount string
	NoComments   bool
	Comments     []commentView
}

func newWatchView(r *http.Request, videoID string, out resolver.Outcome) watchView {
	p := printerFor(r)
	v := out.Video

	title := v.Title
	if title == "" {
		title = videoID
	}
	view := watchView{
		baseView:     baseView{Title: title, RequestID: log.RequestIDFromContext(r.Context())},
		VideoID:      videoID,
		Fallback:     out.Fallback(),
		EmbedURL:     resolver.EmbedURL(videoID),
		Description:  v.Description,
		ChannelName:  v.ChannelName,
		ChannelID:    v.ChannelID,
		ChannelImage: v.ChannelImage,
		Views:        p.Sprintf("%d", int64(v.Views)),
		Likes:        p.Sprintf("%d", int64(v.Likes)),
		CommentCount: p.Sprintf("%d", int64(out.Comments.CommentCount)),
		NoComments:   out.Comments.IsEmpty(),
	}
	if !view.Fallback {
		view.StreamURL = v.StreamURL
	}
	for _, c := range out.Comments.Comments {
		view.Comments = append(view.Comments, commentView{
			Author:    c.Author,
			Avatar:    c.Avatar(),
			Content:   c.Content,
			Published: c.PublishedText,
			Likes:     p.Sprintf("%d", int64(c.LikeCount)),
		})
	}
	return view
}

// renderPage executes into a buffer first so a template failure can still
// produce a clean 500 instead of a truncated page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "page.render_failed").
			Str("template", name).
			Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	s.renderPage(w, r, code, "error.html", errorView{
		baseView: baseView{Title: http.StatusText(code), RequestID: log.RequestIDFromContext(r.Context())},
		Status:   code,
		Message:  msg,
	})
}
