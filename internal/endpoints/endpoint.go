// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package endpoints owns the ordered list of candidate backend base URLs:
// where it comes from, how refreshes are merged and how readers see it.
package endpoints

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Endpoint is the base address of one backend instance, without a trailing slash.
type Endpoint string

func (e Endpoint) String() string { return string(e) }

// List is an ordered endpoint list; index 0 is the most preferred.
// A List handed out by Cache is shared and must not be modified.
type List []Endpoint

// Strings returns the list as plain strings.
func (l List) Strings() []string {
	return lo.Map(l, func(e Endpoint, _ int) string { return string(e) })
}

// Clone returns a copy that the caller may modify.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// ParseEndpoint validates a raw base URL and returns its canonical form.
func ParseEndpoint(raw string) (Endpoint, bool) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	return Endpoint(raw), true
}

// Normalize turns raw strings into a List: invalid entries are dropped and
// duplicates removed, keeping the first occurrence and therefore its priority.
func Normalize(raw []string) List {
	parsed := lo.FilterMap(raw, func(s string, _ int) (Endpoint, bool) {
		return ParseEndpoint(s)
	})
	return List(lo.Uniq(parsed))
}
