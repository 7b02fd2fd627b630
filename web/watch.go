package web

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/robinvdvleuten/salesledger/store"
)

// debounceDelay absorbs the several events editors and atomic saves emit
// for one change.
const debounceDelay = 100 * time.Millisecond

// watchPath returns the file backing the store, or "" when the store is
// not file based.
func (s *Server) watchPath() string {
	fs, ok := s.store.(*store.FileStore)
	if !ok {
		return ""
	}
	path, err := filepath.Abs(fs.Path())
	if err != nil {
		return fs.Path()
	}
	return path
}

// startWatcher watches the directory of the JSON store file. Watching the
// directory keeps working across the rename of an atomic save.
func (s *Server) startWatcher(ctx context.Context) error {
	path := s.watchPath()
	if path == "" {
		s.log.Info("store is not file based, watching disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	go s.runWatcher(ctx, watcher, path)
	return nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.handleFileChange(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("file watcher error")
		}
	}
}

// handleFileChange reloads the ledger and tells clients to refetch.
func (s *Server) handleFileChange(ctx context.Context) {
	if err := s.Load(ctx); err != nil {
		s.log.WithError(err).Error("failed to reload ledger")
		return
	}
	s.metrics.reloads.Inc()
	s.log.Info("ledger reloaded")
	s.broadcast("reload")
}
