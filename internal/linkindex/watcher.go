package linkindex

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/starlinks/internal/storage"
)

// settleDelay is how long writes to a file are coalesced before the file is
// re-derived.
const settleDelay = 100 * time.Millisecond

// Sink receives create/delete notifications for content pages, identified
// by absolute path.
type Sink interface {
	Created(path string)
	Deleted(path string)
}

// Watch starts an fsnotify watcher on the content root and forwards page
// changes to sink until ctx is cancelled.
//
// New directories created at runtime are added to the watch list and the
// pages already inside them are reported as created. A modified page is
// reported as deleted then created once writes to it have settled, so a
// changed slug override replaces the old record.
func Watch(ctx context.Context, root string, sink Sink, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	isPage := func(abs string) bool {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return false
		}
		return storage.IsContent(filepath.ToSlash(rel))
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for p := range pending {
				if _, statErr := os.Stat(p); statErr != nil {
					continue
				}
				sink.Deleted(p)
				sink.Created(p)
				logger.Debug("watcher: updated", slog.String("path", p))
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					createdInDir(absPath, isPage, sink, logger)
					continue
				}
			}

			if !isPage(absPath) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				delete(pending, absPath)
				sink.Created(absPath)
				logger.Debug("watcher: created", slog.String("path", absPath))

			case ev.Op&fsnotify.Write != 0:
				pending[absPath] = struct{}{}
				scheduleSettle()

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives
				// as a separate Create when it stays under the root.
				delete(pending, absPath)
				sink.Deleted(absPath)
				logger.Debug("watcher: deleted", slog.String("path", absPath))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// createdInDir reports the pages found in a newly created directory.
func createdInDir(dirPath string, isPage func(string) bool, sink Sink, logger *slog.Logger) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isPage(path) {
			return nil
		}
		sink.Created(path)
		logger.Debug("watcher: created from new dir", slog.String("path", path))
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
