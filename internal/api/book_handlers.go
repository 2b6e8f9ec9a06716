package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/normalize"
	"github.com/schoolhub/schoolhub-server/internal/search"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// handleListBooks returns every book the caller's grants cover, ordered by
// book ID.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.bookService.ListBooks(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleSearchBooks runs a full-text search scoped to the caller's grants.
func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	params := parseSearchParams(r)

	books, err := s.bookService.SearchBooks(r.Context(), identityFromContext(r.Context()), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleGetBook returns a single book if the caller's grants cover it.
// Inaccessible books look absent, matching the file gate.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID", s.logger)
		return
	}

	book, err := s.bookService.GetBook(r.Context(), identityFromContext(r.Context()), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleCreateBook uploads a new book: metadata form fields plus a required
// "pdf" file part and an optional "cover" part.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	meta, pdf, cover, cleanup, ok := s.parseBookForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	book, err := s.bookService.CreateBook(r.Context(), meta, pdf, cover)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleUpdateBook replaces a book's metadata and optionally its files.
// The book ID never changes.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID", s.logger)
		return
	}

	meta, pdf, cover, cleanup, ok := s.parseBookForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	book, err := s.bookService.UpdateBook(r.Context(), bookID, meta, pdf, cover)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleDeleteBook removes a book, its stored files, and its search entry.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid book ID", s.logger)
		return
	}

	if err := s.bookService.DeleteBook(r.Context(), bookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleReindexBooks rebuilds the search index from the store.
func (s *Server) handleReindexBooks(w http.ResponseWriter, r *http.Request) {
	count, err := s.bookService.ReindexAll(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]int{"indexed": count}, s.logger)
}

// parseBookForm extracts book metadata and file parts from a multipart
// request. On failure it writes the error response and returns ok=false.
func (s *Server) parseBookForm(w http.ResponseWriter, r *http.Request) (meta service.BookMetadata, pdf, cover *service.Upload, cleanup func(), ok bool) {
	cleanup = func() {}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.BadRequest(w, "Invalid multipart form", s.logger)
		return meta, nil, nil, cleanup, false
	}

	meta = service.BookMetadata{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		Description: r.FormValue("description"),
		Language:    r.FormValue("language"),
		Tags:        r.Form["tags"],
	}

	pdfFile, pdfHeader, err := formFile(r, "pdf")
	if err != nil {
		response.BadRequest(w, "Invalid pdf upload", s.logger)
		return meta, nil, nil, cleanup, false
	}

	coverFile, coverHeader, err := formFile(r, "cover")
	if err != nil {
		if pdfFile != nil {
			pdfFile.Close()
		}
		response.BadRequest(w, "Invalid cover upload", s.logger)
		return meta, nil, nil, cleanup, false
	}

	cleanup = func() {
		if pdfFile != nil {
			pdfFile.Close()
		}
		if coverFile != nil {
			coverFile.Close()
		}
	}

	if pdfFile != nil {
		pdf = &service.Upload{Reader: pdfFile, Filename: pdfHeader.Filename}
	}
	if coverFile != nil {
		cover = &service.Upload{Reader: coverFile, Filename: coverHeader.Filename}
	}

	return meta, pdf, cover, cleanup, true
}

// formFile returns a named file part, or nil if the part is absent.
func formFile(r *http.Request, name string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return file, header, nil
}

// parseSearchParams builds search parameters from the query string.
// Tag and language filters are canonicalized the same way book metadata is
// at write time, so ?tag=Math finds books tagged "math".
func parseSearchParams(r *http.Request) search.Params {
	params := search.DefaultParams()
	params.Query = r.URL.Query().Get("q")
	params.Tags = normalize.Tags(r.URL.Query()["tag"])
	params.Language = normalize.Language(r.URL.Query().Get("language"))

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			params.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	return params
}
