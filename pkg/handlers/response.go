package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteYAML writes a YAML response and returns any encoding error.
func WriteYAML(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/yaml")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// WantsYAML reports whether the Accept header prefers YAML over JSON.
func WantsYAML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "application/yaml", "application/x-yaml", "text/yaml":
			return true
		case "application/json":
			return false
		}
	}
	return false
}

// WriteNegotiated writes data as YAML or JSON depending on the Accept header.
func WriteNegotiated(w http.ResponseWriter, r *http.Request, statusCode int, data any) error {
	if WantsYAML(r) {
		return WriteYAML(w, statusCode, data)
	}
	return WriteJSON(w, statusCode, data)
}

// serviceError maps a service error onto an HTTP status and error code.
// notFoundCode is used for apperrors.ErrNotFound since its meaning depends on the route.
func serviceError(err error, notFoundCode string) (int, string, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, notFoundCode, "Not found"
	case errors.Is(err, apperrors.ErrSuperseded):
		return http.StatusConflict, "superseded", "Request replaced by a newer one"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid e-mail or password"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Backend rejected the access token"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "forbidden", "Access denied"
	case errors.Is(err, apperrors.ErrBackendUnavailable):
		return http.StatusBadGateway, "backend_unavailable", "Community backend unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

// writeServiceError logs err and writes the matching error response.
// Nothing is written when the client has already gone away.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, notFoundCode string) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Debug("Client went away", zap.String("path", r.URL.Path))
		return
	}

	status, code, message := serviceError(err, notFoundCode)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	} else {
		logger.Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.String("error_code", code),
			zap.Error(err))
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
