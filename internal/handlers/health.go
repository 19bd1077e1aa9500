package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version is the reported service version.
const Version = "1.0.0"

// Health responds with a simple status payload for monitoring.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"service":   "mm-mentions-bot",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
