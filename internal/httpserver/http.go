package httpserver

import (
	"net/http"
	"time"

	"mm-mentions-bot/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewServer creates the HTTP server exposing the health, run trigger, and
// product callback endpoints.
func NewServer(port, callbackPath string, run handlers.RunHandler, callback handlers.CallbackHandler) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/api/health", handlers.Health)

	r.Post("/api/run-today", run.Handle)
	r.Get("/api/run-today", run.Handle)

	r.Post(callbackPath, callback.Handle)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
}
