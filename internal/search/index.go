// Package search provides full-text search over the book catalog.
//
// It wraps a Bleve index treated as a pure lookup structure: the Badger
// store remains the source of truth, and access control is applied by the
// caller after search results come back.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/schoolhub/schoolhub-server/internal/domain"
)

// mappingVersion is incremented whenever the index mapping changes.
// A version mismatch on startup triggers an automatic rebuild.
const mappingVersion = "1"

// BookIndex wraps a Bleve index with book-specific operations.
//
// All public methods are safe for concurrent use. The mutex guards
// against index replacement during rebuilds.
type BookIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewBookIndex creates or opens the search index under dataPath. A
// corrupted or version-mismatched index is discarded and recreated; the
// caller is expected to reindex from the store afterwards.
func NewBookIndex(dataPath string, logger *slog.Logger) (*BookIndex, error) {
	indexPath := filepath.Join(dataPath, "search.bleve")
	versionPath := filepath.Join(dataPath, "search.version")

	var index bleve.Index
	needsRebuild := false

	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(version) != mappingVersion {
			logger.Info("Search index mapping changed, rebuilding", "version", mappingVersion)
			needsRebuild = true
		} else {
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("Failed to open search index, recreating", "error", err)
				needsRebuild = true
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0644); err != nil {
			logger.Warn("Failed to write search version file", "error", err)
		}
		logger.Info("Created search index", "path", indexPath)
	}

	return &BookIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (b *BookIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

// IndexBook adds or updates a book in the index.
func (b *BookIndex) IndexBook(book *domain.Book) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Index(book.BookIDString(), bookDocument(book))
}

// IndexBooks indexes books in a single batch. Used for startup reindexing.
func (b *BookIndex) IndexBooks(books []*domain.Book) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	batch := b.index.NewBatch()
	for _, book := range books {
		if err := batch.Index(book.BookIDString(), bookDocument(book)); err != nil {
			return fmt.Errorf("batch index book %d: %w", book.BookID, err)
		}
	}

	return b.index.Batch(batch)
}

// DeleteBook removes a book from the index.
func (b *BookIndex) DeleteBook(bookID int) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Delete(strconv.Itoa(bookID))
}

// Count returns the number of indexed books.
func (b *BookIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// bookDocument maps a book to the indexed field set. Field names are
// lowercase to match the mapping.
func bookDocument(book *domain.Book) map[string]any {
	return map[string]any{
		"title":       book.Title,
		"author":      book.Author,
		"description": book.Description,
		"tags":        book.Tags,
		"language":    book.Language,
	}
}
