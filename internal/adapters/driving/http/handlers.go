package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/custodia-labs/userstore/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"Error" example:"user not found"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// Health endpoint

// handleHealth godoc
// @Summary      Health check
// @Description  Returns 200 when the record store is reachable, 503 otherwise
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Store unreachable"
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// User endpoints

// handleListUsers godoc
// @Summary      List users
// @Description  Returns all stored users ordered by id
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      429  {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleGetUser godoc
// @Summary      Get user
// @Description  Returns a single user by id
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Failure      429  {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users/{id} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := s.userService.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleCreateUser godoc
// @Summary      Create user
// @Description  Validates the candidate, assigns a fresh id and stores it
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.User  true  "User candidate (id ignored)"
// @Success      201      {object}  domain.User
// @Failure      400      {object}  ErrorResponse  "Validation failed"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      429      {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var candidate domain.User
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), &candidate)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

// handleUpdateUser godoc
// @Summary      Update user
// @Description  Overwrites an existing user entirely; the path id always wins
// @Tags         Users
// @Accept       json
// @Security     BearerAuth
// @Param        id       path  int          true  "User id"
// @Param        request  body  domain.User  true  "Replacement record"
// @Success      204
// @Failure      400  {object}  ErrorResponse  "Validation failed"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Failure      429  {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users/{id} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var candidate domain.User
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.userService.Update(r.Context(), id, &candidate); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteUser godoc
// @Summary      Delete user
// @Description  Removes a user key entirely; ids are never reused
// @Tags         Users
// @Security     BearerAuth
// @Param        id  path  int  true  "User id"
// @Success      204
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Failure      429  {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearchUsers godoc
// @Summary      Search users
// @Description  Case-insensitive substring match on name
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        name  query     string  true  "Search term"
// @Success      200   {array}   domain.User
// @Failure      400   {object}  ErrorResponse  "Empty search term"
// @Failure      401   {object}  ErrorResponse  "Unauthorized"
// @Failure      429   {object}  ErrorResponse  "Rate limit exceeded"
// @Failure      500   {object}  ErrorResponse  "Internal server error"
// @Router       /users/search [get]
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Helper functions

// pathID parses the {id} path segment. Non-numeric and non-positive
// ids address no possible record, so callers treat them as not found.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors onto status codes. Validation
// and not-found are expected caller-recoverable outcomes and are never
// logged as errors; store failures are logged with detail and surfaced
// as a generic message only.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrEmailInvalid),
		errors.Is(err, domain.ErrEmptySearchTerm),
		errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"correlation_id", CorrelationID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
