package api

import (
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/files"
)

// handleServeFile serves a library file (cover image or book PDF) after the
// access gate has authorized the request. Errors are plain text, not the
// JSON envelope: these URLs are fetched by <img> tags and PDF viewers, and
// the bodies are deliberately uniform so responses don't leak catalog
// structure.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	rest := unescapePath(chi.URLParam(r, "*"))

	var identity *files.Identity
	if token := bearerToken(r); token != "" {
		claims, err := s.authService.VerifyAccessToken(token)
		if err == nil {
			identity = identityFromClaims(claims)
		}
	}

	resolved, err := s.gate.Authorize(r.Context(), identity, category, rest)
	if err != nil {
		s.writeFileError(w, err)
		return
	}

	w.Header().Set("Content-Type", resolved.ContentType)
	w.Header().Set("Cache-Control", resolved.CacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, resolved.AbsPath)
}

// handleServeMedia serves public site images (gallery photos and staff
// portraits). No authentication; the path is still confined to its base
// directory.
func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	rest := unescapePath(chi.URLParam(r, "*"))

	if category != "gallery" && category != "staff" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	absPath, err := s.storage.Resolve(category + "/" + rest)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", files.ContentTypeForPath(absPath))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, absPath)
}

// unescapePath decodes percent-encoding in a wildcard route segment so
// encoded separators cannot smuggle traversal sequences past the path
// checks. Undecodable input is passed through; it fails containment or
// lookup downstream.
func unescapePath(p string) string {
	unescaped, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return unescaped
}

// writeFileError translates a gate error into a plain-text response.
func (s *Server) writeFileError(w http.ResponseWriter, err error) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		http.Error(w, domainErr.Message, domainErr.Code.HTTPStatus())
		return
	}

	s.logger.Error("File request failed", "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
