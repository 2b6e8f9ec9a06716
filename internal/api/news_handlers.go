package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// handleListNews returns published articles, newest first.
func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.newsService.ListNews(r.Context(), true)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, items, s.logger)
}

// handleListAllNews returns every article including drafts (admin view).
func (s *Server) handleListAllNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.newsService.ListNews(r.Context(), false)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, items, s.logger)
}

// handleGetNewsBySlug returns a published article by its public URL slug.
// Drafts are indistinguishable from missing articles here.
func (s *Server) handleGetNewsBySlug(w http.ResponseWriter, r *http.Request) {
	item, err := s.newsService.GetNewsBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, item, s.logger)
}

// handleGetNews returns an article by ID, drafts included.
func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	item, err := s.newsService.GetNews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, item, s.logger)
}

// handleCreateNews creates an article. The body is accepted as HTML and
// stored as Markdown.
func (s *Server) handleCreateNews(w http.ResponseWriter, r *http.Request) {
	var req service.NewsRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	item, err := s.newsService.CreateNews(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, item, s.logger)
}

// handleUpdateNews edits an article. The slug never changes, so published
// URLs keep working.
func (s *Server) handleUpdateNews(w http.ResponseWriter, r *http.Request) {
	var req service.NewsRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	item, err := s.newsService.UpdateNews(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, item, s.logger)
}

// handleDeleteNews removes an article.
func (s *Server) handleDeleteNews(w http.ResponseWriter, r *http.Request) {
	if err := s.newsService.DeleteNews(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
