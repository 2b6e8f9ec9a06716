// Package watcher monitors the media directory for out-of-band changes.
//
// Files are only supposed to appear and disappear through the upload and
// delete flows. When something else removes a stored file (manual cleanup,
// a sync tool, a failing disk), the owning catalog record silently breaks;
// the watcher surfaces that in the logs as soon as it happens instead of
// at the next failed download.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/store"
)

// MediaWatcher watches the media directory tree for removals of files that
// catalog records still reference.
type MediaWatcher struct {
	store   *store.Store
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// New creates a watcher over the storage roots.
func New(st *store.Store, storage *files.Storage, logger *slog.Logger) (*MediaWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	for _, dir := range []string{storage.CoversDir(), storage.BooksDir(), storage.GalleryDir(), storage.StaffDir()} {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close() //nolint:errcheck // Already failing
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return &MediaWatcher{
		store:   st,
		watcher: fsw,
		logger:  logger,
	}, nil
}

// Start processes events until the context is cancelled.
func (w *MediaWatcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Media watcher error", "error", err)
		}
	}
}

// Close stops watching and releases resources.
func (w *MediaWatcher) Close() error {
	return w.watcher.Close()
}

// handleEvent checks removals against the catalog and warns when a still
// referenced file disappears.
func (w *MediaWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	category := filepath.Base(filepath.Dir(event.Name))
	if category != files.CategoryCovers && category != files.CategoryBooks {
		return
	}

	fileID := files.FileID(event.Name)
	if fileID == "" {
		return
	}

	book, err := w.store.Books.GetByIndex(ctx, "file", fileID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			w.logger.Error("Media watcher catalog lookup failed", "file_id", fileID, "error", err)
		}
		return
	}

	w.logger.Warn("Stored file removed outside the application",
		"path", event.Name,
		"category", category,
		"book_id", book.BookID,
		"title", strings.TrimSpace(book.Title),
	)
}
