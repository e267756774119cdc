package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the generic JSON response body: one named top-level key holding
// the payload, e.g. {"transactions": [...]} or {"bill": {...}}.
type envelope map[string]any

// errorBody mirrors the error shape clients already expect.
type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorBody{Detail: detail})
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, envelope{"message": message})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
