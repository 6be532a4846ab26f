package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/projecthub/internal/catalog"
	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/proposal"
	"github.com/terra-clan/projecthub/internal/selection"
	"github.com/terra-clan/projecthub/internal/session"
	"github.com/terra-clan/projecthub/pkg/client"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondFailure maps domain and upstream errors onto HTTP responses
func respondFailure(w http.ResponseWriter, err error, action string) {
	var apiErr *client.APIError

	switch {
	case errors.Is(err, selection.ErrLimitReached):
		respondError(w, http.StatusConflict, "limit_reached", err.Error())
	case errors.Is(err, selection.ErrMissingTopicID):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, models.ErrPasswordMismatch):
		respondError(w, http.StatusBadRequest, "password_mismatch", err.Error())
	case errors.Is(err, models.ErrInvalidTopic):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, proposal.ErrEmptySelection):
		respondError(w, http.StatusBadRequest, "empty_selection", err.Error())
	case errors.Is(err, models.ErrNotFound), errors.Is(err, catalog.ErrTopicNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict:
			status = apiErr.StatusCode
		}
		slog.Warn("upstream request failed", "action", action, "status", apiErr.StatusCode, "error", apiErr.Message)
		respondError(w, status, "upstream_error", apiErr.Message)
	case errors.Is(err, client.ErrUnavailable):
		slog.Warn("upstream unreachable", "action", action, "error", err)
		respondError(w, http.StatusBadGateway, "upstream_error", "proposal service unavailable")
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// Visitor helpers

func (s *Server) wishlist(ctx context.Context) (*selection.Set, error) {
	return selection.Load(ctx, selection.NewKVPort(VisitorFromContext(ctx).Store))
}

func (s *Server) mirror(ctx context.Context) *session.Mirror {
	return session.NewMirror(VisitorFromContext(ctx).Store)
}

// upstream returns ctx carrying the visitor's stored auth token
func (s *Server) upstream(ctx context.Context) context.Context {
	token, err := s.mirror(ctx).Token(ctx)
	if err != nil {
		slog.Warn("failed to read auth token", "error", err)
		return ctx
	}
	return upstreamContext(ctx, token)
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, "")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report, healthy := s.registry.Report(r.Context(), 5*time.Second)
	if !healthy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(apiResponse{
			Success: false,
			Data:    report,
			Error:   &apiError{Code: "not_ready", Message: "service not ready"},
		})
		return
	}

	respondJSON(w, http.StatusOK, report, "")
}
