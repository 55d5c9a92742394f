// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package endpoints

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	vglog "github.com/ManuGH/vidgate/internal/log"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch calls onChange whenever the list file is written, created or renamed
// into place. The parent directory is watched so that editors replacing the
// file atomically are still observed. Watch blocks until ctx is done.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	logger := vglog.WithComponent("endpoints")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	logger.Info().
		Str(vglog.FieldEvent, "endpoints.watch_started").
		Str(vglog.FieldPath, s.path).
		Msg("watching endpoint list file")

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().
				Err(werr).
				Str(vglog.FieldEvent, "endpoints.watch_error").
				Msg("endpoint file watcher error")
		}
	}
}
