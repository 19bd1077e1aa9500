package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

var errOriginUnavailable = errors.New("unable to determine request origin for callback URL")

// writeSuccess writes the standard success envelope: the payload fields plus
// a success flag and timestamp.
func writeSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the standard error envelope. Only the error message is
// exposed, never a stack trace.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
