package utils

import (
	"encoding/json"
	"net/http"
)

// JSONError writes an `{"error": "..."}` body with the given status.
// Rejection reasons pass through here verbatim, so the message must
// already be safe to show the client.
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONWrite encodes v as the JSON response body with the given status.
// A zero status leaves the implicit 200 to the first write.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}
