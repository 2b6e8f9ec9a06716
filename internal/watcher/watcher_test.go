package watcher

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/store"
)

func setupWatcher(t *testing.T) (*MediaWatcher, *store.Store, *files.Storage) {
	t.Helper()

	st, err := store.New(t.TempDir(), logger.Discard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	storage, err := files.NewStorage(t.TempDir())
	require.NoError(t, err)

	w, err := New(st, storage, logger.Discard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, w.Close())
	})

	return w, st, storage
}

func TestHandleEventIgnoresWrites(t *testing.T) {
	w, _, storage := setupWatcher(t)

	// Write events in watched dirs are routine (uploads) and ignored.
	w.handleEvent(context.Background(), fsnotify.Event{
		Name: storage.BooksDir() + "/abc.pdf",
		Op:   fsnotify.Create,
	})
}

func TestHandleEventRemovalOfOwnedFile(t *testing.T) {
	w, st, storage := setupWatcher(t)
	ctx := context.Background()

	pdf, err := storage.SavePDF(strings.NewReader("%PDF"), ".pdf")
	require.NoError(t, err)

	book := &domain.Book{BookID: 5, Title: "Owned", PDFPath: pdf.RelPath, PDFFileID: pdf.ID}
	book.Record.ID = strconv.Itoa(book.BookID)
	require.NoError(t, st.Books.Create(ctx, book.ID, book))

	// Does not panic or error; the warning path exercises the catalog
	// lookup by file id.
	w.handleEvent(ctx, fsnotify.Event{Name: pdf.AbsPath, Op: fsnotify.Remove})

	// Unowned removals are silent.
	w.handleEvent(ctx, fsnotify.Event{Name: storage.BooksDir() + "/unowned.pdf", Op: fsnotify.Remove})
}

func TestStartStopsOnContextCancel(t *testing.T) {
	w, _, _ := setupWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx)
	}()

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
