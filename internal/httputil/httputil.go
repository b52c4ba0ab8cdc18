package httputil

import (
	"encoding/json"
	"net/http"

	"lv-marginfx/internal/apperr"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps the failure taxonomy onto status codes. In production
// mode unclassified errors are reduced to a generic message so internals
// do not leak.
func WriteError(w http.ResponseWriter, err error, production bool) {
	status := StatusOf(err)
	msg := err.Error()
	if production && status >= http.StatusInternalServerError {
		msg = "service unavailable, please try again"
	}
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}
