// Package httpx holds the JSON response helpers shared by the handlers,
// including the mapping from the service error taxonomy to HTTP statuses.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rbelarbi/fatoora/internal/errs"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Error maps the service error taxonomy onto HTTP statuses: validation
// failures are 422, state conflicts 409, missing records 404, storage
// outages 503. Anything unclassified is a 500.
func Error(w http.ResponseWriter, err error) {
	var (
		ve *errs.ValidationError
		se *errs.InvalidStateError
		nf *errs.NotFoundError
		su *errs.StorageError
	)
	switch {
	case errors.As(err, &ve):
		JSONError(w, http.StatusUnprocessableEntity, "validation_failed",
			map[string]string{ve.Field: ve.Reason})
	case errors.As(err, &se):
		JSONError(w, http.StatusConflict, "invalid_state", se.Error())
	case errors.As(err, &nf):
		JSONError(w, http.StatusNotFound, "not_found", nf.Entity)
	case errors.As(err, &su):
		JSONError(w, http.StatusServiceUnavailable, "storage_unavailable", nil)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
