package api

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

// writeError sends a client-safe error message. Internal error details never
// reach the response body.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, map[string]any{"success": false, "error": message}, status)
}
