package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/bridge"
	"github.com/starford/quire/internal/notes"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decode reads a JSON body into v and runs its validation, if any.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	if val, ok := v.(validation.Validatable); ok {
		return val.Validate()
	}
	return nil
}

var errBadJSON = errors.New("invalid JSON body")

// writeError maps domain errors to status codes. Anything unrecognized is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error) {
	var verr validation.Errors
	switch {
	case errors.Is(err, errBadJSON):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody(verr.Error()))
	case errors.Is(err, bridge.ErrEmptyPayload), errors.Is(err, bridge.ErrMalformed):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, notes.ErrEmptyDocument):
		writeJSON(w, http.StatusBadRequest, errorBody("document has no title or body"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrLocked):
		writeJSON(w, http.StatusConflict, errorBody("note is locked"))
	case errors.Is(err, apperr.ErrVaultLocked):
		writeJSON(w, http.StatusLocked, errorBody("vault is locked"))
	case errors.Is(err, apperr.ErrWrongPassword):
		writeJSON(w, http.StatusForbidden, errorBody("wrong password"))
	case errors.Is(err, apperr.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("editor unavailable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
