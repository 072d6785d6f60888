package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// respondJSON writes a JSON payload with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

// respondError maps an error to the structured error envelope. Internal
// causes are logged and never serialized.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := errors.From(err)
	if appErr == nil {
		appErr = errors.NewInternalError("unexpected error", err)
	}

	if appErr.Type == errors.ErrorTypeInternal {
		log.WithError(appErr).WithField("path", r.URL.Path).Error("request failed")
	}

	if retryAfter := appErr.RetryAfterSeconds(); retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	var response errors.ErrorResponse
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = chiMiddleware.GetReqID(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	respondJSON(w, appErr.StatusCode, response, log)
}

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("invalid request body", map[string]interface{}{"cause": err.Error()})
	}
	return nil
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// uuidParam parses a UUID path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewValidationError("invalid "+name, map[string]interface{}{"field": name})
	}
	return id, nil
}
