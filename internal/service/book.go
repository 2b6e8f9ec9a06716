package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/media/images"
	"github.com/schoolhub/schoolhub-server/internal/normalize"
	"github.com/schoolhub/schoolhub-server/internal/search"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

// BookService manages the e-library catalog: book records, their stored
// files, and the search index. Listing and searching are permission-scoped
// through the same predicate the file gate uses.
type BookService struct {
	store     *store.Store
	storage   *files.Storage
	index     *search.BookIndex
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new catalog service.
func NewBookService(
	st *store.Store,
	storage *files.Storage,
	index *search.BookIndex,
	validator *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:     st,
		storage:   storage,
		index:     index,
		validator: validator,
		logger:    logger,
	}
}

// BookMetadata carries the editable fields of a book.
type BookMetadata struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Author      string   `json:"author" validate:"max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Language    string   `json:"language" validate:"max=16"`
	Tags        []string `json:"tags" validate:"dive,min=1,max=80"`
}

// Upload is a file stream from a multipart form.
type Upload struct {
	Reader   io.Reader
	Filename string
}

func (u *Upload) ext() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// CreateBook persists a new book with its PDF and optional cover. The
// BookID comes from the store's monotonic sequence and is never reused.
func (s *BookService) CreateBook(ctx context.Context, meta BookMetadata, pdf *Upload, cover *Upload) (*domain.Book, error) {
	if err := s.validator.Validate(meta); err != nil {
		return nil, err
	}
	if pdf == nil {
		return nil, domainerrors.Validation("a PDF file is required")
	}
	if pdf.ext() != ".pdf" {
		return nil, domainerrors.Validation("book file must be a PDF")
	}
	if cover != nil && !isImageExt(cover.ext()) {
		return nil, domainerrors.Validation("cover must be a png, jpg, gif or webp image")
	}

	bookID, err := s.store.NextBookID()
	if err != nil {
		return nil, fmt.Errorf("allocate book id: %w", err)
	}

	savedPDF, err := s.storage.SavePDF(pdf.Reader, pdf.ext())
	if err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}

	book := &domain.Book{
		Record:      domain.Record{ID: strconv.Itoa(bookID)},
		BookID:      bookID,
		Title:       meta.Title,
		Author:      meta.Author,
		Description: meta.Description,
		Language:    normalize.Language(meta.Language),
		Tags:        normalize.Tags(meta.Tags),
		PDFPath:     savedPDF.RelPath,
		PDFFileID:   savedPDF.ID,
	}
	book.InitTimestamps()

	if cover != nil {
		if err := s.attachCover(book, cover); err != nil {
			s.removeFiles(savedPDF.RelPath)
			return nil, err
		}
	}

	if err := s.store.Books.Create(ctx, book.ID, book); err != nil {
		s.removeFiles(book.PDFPath, book.CoverPath)
		return nil, fmt.Errorf("create book: %w", err)
	}

	if err := s.index.IndexBook(book); err != nil {
		// The store is the source of truth; index drift is repaired by
		// the next reindex.
		s.logger.Warn("Failed to index book", "book_id", book.BookID, "error", err)
	}

	s.logger.Info("Book created", "book_id", book.BookID, "title", book.Title)

	return book, nil
}

// GetBook returns a book if the caller's claims allow seeing it.
func (s *BookService) GetBook(ctx context.Context, identity *files.Identity, bookID int) (*domain.Book, error) {
	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if identity == nil || !domain.CanAccess(identity.Role, identity.Permissions, book) {
		// Hidden books are indistinguishable from absent ones.
		return nil, domainerrors.NotFound("book not found")
	}

	return book, nil
}

// UpdateBook edits a book's metadata and optionally replaces its files.
// The BookID never changes.
func (s *BookService) UpdateBook(ctx context.Context, bookID int, meta BookMetadata, pdf *Upload, cover *Upload) (*domain.Book, error) {
	if err := s.validator.Validate(meta); err != nil {
		return nil, err
	}
	if pdf != nil && pdf.ext() != ".pdf" {
		return nil, domainerrors.Validation("book file must be a PDF")
	}
	if cover != nil && !isImageExt(cover.ext()) {
		return nil, domainerrors.Validation("cover must be a png, jpg, gif or webp image")
	}

	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.Title = meta.Title
	book.Author = meta.Author
	book.Description = meta.Description
	book.Language = normalize.Language(meta.Language)
	book.Tags = normalize.Tags(meta.Tags)

	oldPDFPath, oldCoverPath := "", ""

	if pdf != nil {
		saved, err := s.storage.SavePDF(pdf.Reader, pdf.ext())
		if err != nil {
			return nil, fmt.Errorf("store pdf: %w", err)
		}
		oldPDFPath = book.PDFPath
		book.PDFPath = saved.RelPath
		book.PDFFileID = saved.ID
	}

	if cover != nil {
		oldCoverPath = book.CoverPath
		if err := s.attachCover(book, cover); err != nil {
			return nil, err
		}
	}

	book.Touch()

	if err := s.store.Books.Update(ctx, book.ID, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	// Old files go only after the record is safely updated.
	s.removeFiles(oldPDFPath, oldCoverPath)

	if err := s.index.IndexBook(book); err != nil {
		s.logger.Warn("Failed to reindex book", "book_id", book.BookID, "error", err)
	}

	s.logger.Info("Book updated", "book_id", book.BookID)

	return book, nil
}

// DeleteBook removes a book, its stored files, and its index entry.
// The BookID is retired, never reassigned.
func (s *BookService) DeleteBook(ctx context.Context, bookID int) error {
	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return err
	}

	if err := s.store.Books.Delete(ctx, book.ID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	s.removeFiles(book.PDFPath, book.CoverPath)

	if err := s.index.DeleteBook(bookID); err != nil {
		s.logger.Warn("Failed to remove book from index", "book_id", bookID, "error", err)
	}

	s.logger.Info("Book deleted", "book_id", bookID)
	return nil
}

// ListBooks returns the books the caller may see: everything for admins
// and "all" grants, otherwise the union of explicitly granted books and
// books sharing a granted tag.
func (s *BookService) ListBooks(ctx context.Context, identity *files.Identity) ([]*domain.Book, error) {
	if identity == nil {
		return nil, domainerrors.Unauthorized("authentication required")
	}

	var visible []*domain.Book
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		if domain.CanAccess(identity.Role, identity.Permissions, book) {
			visible = append(visible, book)
		}
	}

	slices.SortFunc(visible, func(a, b *domain.Book) int {
		return a.BookID - b.BookID
	})

	return visible, nil
}

// SearchBooks runs a catalog search and filters the hits down to what the
// caller may see, so search can never leak a book the listing would hide.
func (s *BookService) SearchBooks(ctx context.Context, identity *files.Identity, params search.Params) ([]*domain.Book, error) {
	if identity == nil {
		return nil, domainerrors.Unauthorized("authentication required")
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	visible := make([]*domain.Book, 0, len(result.Hits))
	for _, hit := range result.Hits {
		book, err := s.store.Books.Get(ctx, hit.BookID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Stale index entry.
				continue
			}
			return nil, fmt.Errorf("load book %s: %w", hit.BookID, err)
		}
		if domain.CanAccess(identity.Role, identity.Permissions, book) {
			visible = append(visible, book)
		}
	}

	return visible, nil
}

// ReindexAll rebuilds the search index from the store. Called on startup
// and after index corruption.
func (s *BookService) ReindexAll(ctx context.Context) (int, error) {
	var books []*domain.Book
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return 0, fmt.Errorf("list books: %w", err)
		}
		books = append(books, book)
	}

	if err := s.index.IndexBooks(books); err != nil {
		return 0, fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("Search index rebuilt", "books", len(books))
	return len(books), nil
}

func (s *BookService) getBook(ctx context.Context, bookID int) (*domain.Book, error) {
	book, err := s.store.Books.Get(ctx, strconv.Itoa(bookID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// attachCover stores the cover upload and computes its blur hash.
func (s *BookService) attachCover(book *domain.Book, cover *Upload) error {
	saved, err := s.storage.SaveCover(cover.Reader, cover.ext())
	if err != nil {
		return fmt.Errorf("store cover: %w", err)
	}

	book.CoverPath = saved.RelPath
	book.CoverFileID = saved.ID

	hash, err := images.ComputeBlurHash(saved.AbsPath)
	if err != nil {
		// A missing placeholder is cosmetic.
		s.logger.Warn("Failed to compute cover blur hash", "path", saved.RelPath, "error", err)
	} else {
		book.CoverBlurHash = hash
	}

	return nil
}

func (s *BookService) removeFiles(relPaths ...string) {
	for _, relPath := range relPaths {
		if relPath == "" {
			continue
		}
		if err := s.storage.Remove(relPath); err != nil {
			s.logger.Warn("Failed to remove stored file", "path", relPath, "error", err)
		}
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	default:
		return false
	}
}
