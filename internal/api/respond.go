package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/harmony-node/internal/domain"
)

// Error codes of the JSON error body.
const (
	CodeBadRequest      = "BadRequest"
	CodeUnauthorized    = "Unauthorized"
	CodeAccessDenied    = "AccessDenied"
	CodeNotFound        = "NotFound"
	CodeTooManyRequests = "TooManyRequests"
	CodeInternalError   = "InternalError"
)

const msgInternal = "An internal error occurred."

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, errorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// errorWriter maps domain errors onto HTTP responses. Anything that is not
// a client error is logged with the request id and answered opaquely.
type errorWriter struct {
	logger *slog.Logger
}

func (e *errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		ae *domain.AccessError
		re *domain.RemoteError
		se *domain.StateError
	)

	switch {
	case errors.As(err, &ve):
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, ve.Message)
		return
	case errors.As(err, &ae):
		respondError(w, r, http.StatusForbidden, CodeAccessDenied, ae.Message)
		return
	}

	e.logger.Error("request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"organization_id", OrganizationID(r.Context()),
		"error", err,
	)

	message := msgInternal
	switch {
	case errors.As(err, &re):
		message = re.Message
	case errors.As(err, &se):
		message = se.Message
	}
	respondError(w, r, http.StatusInternalServerError, CodeInternalError, message)
}
