package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"screenpoints/internal/security"
	"screenpoints/internal/service"
	"screenpoints/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		logger.Error(userMsg, zap.Error(err))
	}
	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors are internal failures and never leak their text.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validationErr validation.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.Is(err, service.ErrChildNotFound),
		errors.Is(err, service.ErrRewardNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrChildUnauthorized),
		errors.Is(err, service.ErrRewardUnauthorized):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrRewardUnavailable):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrTokenInvalid),
		errors.Is(err, security.ErrTokenExpired):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		respondError(w, logger, http.StatusInternalServerError, "internal error", err)
	}
}
