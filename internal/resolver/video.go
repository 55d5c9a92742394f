// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"net/url"
	"regexp"
)

// SentinelStream is the stream locator meaning "no backend stream, render the
// external embed instead".
const SentinelStream = "youtube-nocookie"

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidVideoID reports whether id is safe to place into a backend path.
func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// EmbedURL is the external player used when no stream was resolved.
func EmbedURL(videoID string) string {
	return "https://www.youtube-nocookie.com/embed/" + url.PathEscape(videoID) + "?autoplay=1"
}

// Video is the descriptor returned by GET {endpoint}/api/video/{id}.
type Video struct {
	StreamURL    string `json:"stream_url"`
	Title        string `json:"videoTitle"`
	Description  string `json:"videoDes"`
	ChannelName  string `json:"channelName"`
	ChannelID    string `json:"channelId"`
	ChannelImage string `json:"channelImage"`
	Views        Count  `json:"videoViews"`
	Likes        Count  `json:"likeCount"`
}

// Qualifies reports whether v carries a usable stream locator.
func (v *Video) Qualifies() bool {
	return v != nil && v.StreamURL != "" && v.StreamURL != SentinelStream
}

// IsFallback reports whether v carries the sentinel locator.
func (v Video) IsFallback() bool {
	return v.StreamURL == SentinelStream
}

// Normalize returns v unchanged when it qualifies. Otherwise it returns a
// descriptor with the sentinel locator, keeping whatever metadata v carried.
func Normalize(v *Video) Video {
	if v.Qualifies() {
		return *v
	}
	var out Video
	if v != nil {
		out = *v
	}
	out.StreamURL = SentinelStream
	return out
}
