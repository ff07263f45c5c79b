package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/snapnotes/internal/apperr"
)

// maxJSONBody caps request bodies on JSON endpoints. Source text is limited
// to 50 000 characters, which fits well within this.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string `json:"error" validate:"required"`
	Kind   string `json:"kind" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

func errorBody(kind, msg string) errResponse {
	return errResponse{Error: msg, Kind: kind}
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *apperr.ValidationError
		ee *apperr.ExtractionError
		ae *apperr.APIError
		se *apperr.StorageError
	)

	var status int
	body := errorBody("", err.Error())
	switch {
	case errors.As(err, &ve):
		status, body.Kind, body.Error = http.StatusBadRequest, "validation", ve.Message
	case errors.As(err, &ee):
		status, body.Kind, body.Reason = http.StatusUnprocessableEntity, "extraction", string(ee.Kind)
		body.Error = ee.Error()
	case errors.As(err, &ae):
		status, body.Kind = http.StatusBadGateway, "api"
	case errors.As(err, &se):
		status, body.Kind = http.StatusInternalServerError, "storage"
	case errors.Is(err, apperr.ErrNotFound):
		status, body.Kind, body.Error = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, apperr.ErrBusy):
		status, body.Kind = http.StatusConflict, "busy"
		body.Error = apperr.ErrBusy.Error()
	case errors.Is(err, apperr.ErrNotImplemented):
		status, body.Kind = http.StatusNotImplemented, "not_implemented"
	default:
		status, body.Kind, body.Error = http.StatusInternalServerError, "internal", "internal error"
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body into v and runs its validation rules.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.NewValidation("", "invalid JSON body")
	}
	if err := v.Validate(); err != nil {
		return apperr.NewValidation("", err.Error())
	}
	return nil
}
