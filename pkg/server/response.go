package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorBody is the error envelope of every non-2xx JSON response.
type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.DebugContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, message string) {
	writeJSON(w, r, code, errorBody{Error: errorDetail{Code: errCode, Message: message}})
}
