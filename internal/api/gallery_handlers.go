package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// handleListGalleries returns all photo albums.
func (s *Server) handleListGalleries(w http.ResponseWriter, r *http.Request) {
	galleries, err := s.galleryService.ListGalleries(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, galleries, s.logger)
}

// handleGetGallery returns an album by ID.
func (s *Server) handleGetGallery(w http.ResponseWriter, r *http.Request) {
	gallery, err := s.galleryService.GetGallery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, gallery, s.logger)
}

// handleGetGalleryBySlug returns an album by its public URL slug.
func (s *Server) handleGetGalleryBySlug(w http.ResponseWriter, r *http.Request) {
	gallery, err := s.galleryService.GetGalleryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, gallery, s.logger)
}

// handleCreateGallery creates an empty album.
func (s *Server) handleCreateGallery(w http.ResponseWriter, r *http.Request) {
	var req service.GalleryRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	gallery, err := s.galleryService.CreateGallery(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, gallery, s.logger)
}

// handleUpdateGallery edits an album's title and description. The slug is
// stable across edits.
func (s *Server) handleUpdateGallery(w http.ResponseWriter, r *http.Request) {
	var req service.GalleryRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	gallery, err := s.galleryService.UpdateGallery(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, gallery, s.logger)
}

// handleDeleteGallery removes an album and all of its stored images.
func (s *Server) handleDeleteGallery(w http.ResponseWriter, r *http.Request) {
	if err := s.galleryService.DeleteGallery(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleAddGalleryImage uploads a photo into an album: an "image" file part
// plus an optional "caption" form field.
func (s *Server) handleAddGalleryImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.BadRequest(w, "Invalid multipart form", s.logger)
		return
	}

	imageFile, imageHeader, err := formFile(r, "image")
	if err != nil || imageFile == nil {
		response.BadRequest(w, "Image file is required", s.logger)
		return
	}
	defer imageFile.Close()

	photo := &service.Upload{Reader: imageFile, Filename: imageHeader.Filename}

	gallery, err := s.galleryService.AddImage(r.Context(), chi.URLParam(r, "id"), photo, r.FormValue("caption"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, gallery, s.logger)
}

// handleRemoveGalleryImage removes a photo from an album. The image is
// identified by its storage-relative path, passed as the "path" query
// parameter since it contains a slash.
func (s *Server) handleRemoveGalleryImage(w http.ResponseWriter, r *http.Request) {
	imagePath := r.URL.Query().Get("path")
	if imagePath == "" {
		response.BadRequest(w, "Image path is required", s.logger)
		return
	}

	gallery, err := s.galleryService.RemoveImage(r.Context(), chi.URLParam(r, "id"), imagePath)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, gallery, s.logger)
}
