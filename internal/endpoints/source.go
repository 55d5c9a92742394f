// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package endpoints

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/vidgate/internal/upstream"
)

// ErrInvalidList is returned when a source payload cannot be parsed into endpoints.
var ErrInvalidList = errors.New("endpoints: invalid list payload")

// Source produces a candidate endpoint list. Sources are consulted in
// precedence order by Provider.Refresh.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (List, error)
}

// StaticSource serves a fixed list, typically from configuration.
type StaticSource struct {
	list List
}

// NewStaticSource normalizes raw into a fixed list.
func NewStaticSource(raw []string) *StaticSource {
	return &StaticSource{list: Normalize(raw)}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(context.Context) (List, error) {
	return s.list.Clone(), nil
}

// HTTPSource polls a list-publishing service, such as a health checker that
// returns endpoints ordered by health.
type HTTPSource struct {
	url     string
	fetcher *upstream.Fetcher
	timeout time.Duration
}

// NewHTTPSource creates a source for url. Each poll is bounded by timeout.
func NewHTTPSource(url string, fetcher *upstream.Fetcher, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{url: url, fetcher: fetcher, timeout: timeout}
}

func (s *HTTPSource) Name() string { return "health-checker" }

func (s *HTTPSource) Fetch(ctx context.Context) (List, error) {
	resp, err := s.fetcher.Fetch(ctx, s.url, "", s.timeout)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &upstream.FetchError{Sentinel: upstream.ErrStatus, Endpoint: s.url, Status: resp.StatusCode}
	}
	raw, err := parsePayload(resp.Body)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

// FileSource reads endpoints from a local file: either a JSON payload or one
// base URL per line, with '#' starting a comment.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

// Path returns the watched file path.
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Fetch(context.Context) (List, error) {
	// #nosec G304 -- the list file path is provided by the operator via config
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read endpoint file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		raw, err := parsePayload(trimmed)
		if err != nil {
			return nil, err
		}
		return Normalize(raw), nil
	}

	var raw []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			raw = append(raw, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan endpoint file: %w", err)
	}
	return Normalize(raw), nil
}

// parsePayload accepts a JSON array of base URLs, or an object carrying the
// video list under "video", "endpoints" or "apis".
func parsePayload(body []byte) ([]string, error) {
	var arr []string
	if err := json.Unmarshal(body, &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidList, err)
	}
	for _, key := range []string{"video", "endpoints", "apis"} {
		rawList, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(rawList, &arr); err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidList, key, err)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("%w: no endpoint array found", ErrInvalidList)
}
