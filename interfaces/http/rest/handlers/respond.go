// Package handlers holds the REST handlers for the topic graph engine.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	pkgerrors "wikigraph-backend/pkg/errors"
)

// respondJSON writes a JSON response with the given status
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// errorBody is the uniform error response shape
type errorBody struct {
	Error string `json:"error"`
}

// respondError maps typed application errors onto HTTP statuses
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case pkgerrors.IsValidation(err):
		status = http.StatusBadRequest
	case pkgerrors.IsNotFound(err):
		status = http.StatusNotFound
	case pkgerrors.IsConflict(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("Request failed", zap.Error(err))
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

// decodeJSON decodes a request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}
