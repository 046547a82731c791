package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/levicap/github-scrapper/internal/core"
)

// MediaType is the response content type for every API endpoint.
const MediaType = "application/json"

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps a domain error to an HTTP response. Unrecognized errors
// are reported as internal without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		slog.Error("internal error", "error", err)
		coreErr = core.NewInternalError("internal error")
	}
	WriteJSON(w, statusFor(coreErr.Code), map[string]any{"error": coreErr})
}

func statusFor(code string) int {
	switch code {
	case core.ErrCodeInvalidRequest, core.ErrCodeValidationError:
		return http.StatusBadRequest
	case core.ErrCodeNotFound:
		return http.StatusNotFound
	case core.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
