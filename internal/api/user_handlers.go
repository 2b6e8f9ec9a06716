package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// handleCreateUser creates an account with a role and permission grants.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.userService.CreateUser(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, user, s.logger)
}

// handleListUsers returns all accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.ListUsers(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, users, s.logger)
}

// handleGetUser returns a single account by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}

// handleUpdateUser applies a partial update to an account. Changed grants
// take effect when the user next refreshes their token.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.userService.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}

// handleDeleteUser removes an account and its sessions.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.userService.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
