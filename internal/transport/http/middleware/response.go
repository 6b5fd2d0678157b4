package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes {"error": msg}. Unauthorized responses also name the
// accepted scheme so API clients know a Bearer token or session cookie is expected.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="magiclink"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
