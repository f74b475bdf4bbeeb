package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/talksyhq/talksy/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a tagged error to its HTTP status. Business errors surface
// their message verbatim; anything untagged is logged and collapsed to a
// generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindInvalidToken, apperr.KindExpiredToken:
		status = http.StatusBadRequest
	case apperr.KindAuth:
		status = http.StatusUnauthorized
	case apperr.KindDelivery:
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		slog.Error("request failed", "error", err, "kind", kind.String(), "method", r.Method, "path", r.URL.Path)
	}

	writeJSON(w, status, errorBody{Error: apperr.Message(err)})
}
