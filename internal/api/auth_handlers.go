package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/schoolhub/schoolhub-server/internal/http/response"
	"github.com/schoolhub/schoolhub-server/internal/service"
)

// handleSetup creates the first admin account. Only works once: after any
// user exists the endpoint refuses.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req service.SetupRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.authService.Setup(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, result, s.logger)
}

// handleLogin authenticates a user and issues a token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	// RealIP middleware has already resolved the client address.
	req.IPAddress = r.RemoteAddr
	req.UserAgent = r.UserAgent()

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleRefresh exchanges a refresh token for a new token pair. The access
// token is rebuilt from the current user record, so permission changes take
// effect here.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.authService.Refresh(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleLogout revokes a refresh token. Idempotent: revoking an unknown
// token succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGetCurrentUser returns the authenticated user's own account.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.GetUser(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}
