package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// handleListStaff returns the staff directory sorted by name.
func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	members, err := s.staffService.ListStaff(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, members, s.logger)
}

// handleGetStaff returns a single staff member.
func (s *Server) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	member, err := s.staffService.GetStaff(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, member, s.logger)
}

// handleCreateStaff adds a staff member: form fields plus an optional
// "photo" file part.
func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	req, photo, cleanup, ok := s.parseStaffForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	member, err := s.staffService.CreateStaff(r.Context(), req, photo)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, member, s.logger)
}

// handleUpdateStaff replaces a staff member's details and optionally their
// photo.
func (s *Server) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	req, photo, cleanup, ok := s.parseStaffForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	member, err := s.staffService.UpdateStaff(r.Context(), chi.URLParam(r, "id"), req, photo)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, member, s.logger)
}

// handleDeleteStaff removes a staff member and their photo.
func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := s.staffService.DeleteStaff(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// parseStaffForm extracts staff fields and the optional photo part from a
// multipart request.
func (s *Server) parseStaffForm(w http.ResponseWriter, r *http.Request) (req service.StaffRequest, photo *service.Upload, cleanup func(), ok bool) {
	cleanup = func() {}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		response.BadRequest(w, "Invalid multipart form", s.logger)
		return req, nil, cleanup, false
	}

	req = service.StaffRequest{
		Name:     r.FormValue("name"),
		Subject:  r.FormValue("subject"),
		Position: r.FormValue("position"),
		Bio:      r.FormValue("bio"),
		Email:    r.FormValue("email"),
	}

	photoFile, photoHeader, err := formFile(r, "photo")
	if err != nil {
		response.BadRequest(w, "Invalid photo upload", s.logger)
		return req, nil, cleanup, false
	}

	if photoFile != nil {
		cleanup = func() { photoFile.Close() }
		photo = &service.Upload{Reader: photoFile, Filename: photoHeader.Filename}
	}

	return req, photo, cleanup, true
}
