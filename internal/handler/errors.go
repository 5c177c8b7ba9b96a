package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/benchside/calibration-api/internal/domain"
)

// ErrorResponse is the JSON error envelope returned by every error path.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code plus a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON serializes v with the given status. Encoding failures at this
// point mean the response is already half-written, so they are not recoverable
// and are ignored.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps a service error onto the HTTP error envelope.
// Unrecognized errors become opaque 500s — internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", err))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("validation_error", err))
	case errors.Is(err, domain.ErrAlreadyTagged):
		writeJSON(w, http.StatusConflict, errorBody("already_tagged", err))
	case errors.Is(err, domain.ErrNotTagged):
		writeJSON(w, http.StatusConflict, errorBody("not_tagged", err))
	case errors.Is(err, domain.ErrIntegrity):
		writeJSON(w, http.StatusConflict, errorBody("integrity_violation", err))
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "internal_error", Message: "internal server error"},
		})
	}
}

// writeBadRequest rejects malformed input (bad JSON, unparseable UUID or
// timestamp) before it reaches the service layer.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{Code: "bad_request", Message: message},
	})
}

func errorBody(code string, err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: unwrapMessage(err)}}
}

// unwrapMessage strips the layer prefixes from a wrapped sentinel error,
// leaving the human-readable tail.
// e.g. "service.TaggingService.AddTag: tag is required: validation error"
// → "tag is required: validation error".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "service.") {
		if _, rest, ok := strings.Cut(msg, ": "); ok {
			return rest
		}
	}
	return msg
}
