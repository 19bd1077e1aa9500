package handlers

import (
	"context"
	"net/http"
	"strings"

	"mm-mentions-bot/internal/workflows"

	"go.uber.org/zap"
)

// RunFunc invokes the enqueue workflow for one trigger.
type RunFunc func(ctx context.Context, origin, sinceID string) (workflows.EnqueueResult, error)

// RunHandler handles the time-triggered POST/GET /api/run-today invocation.
type RunHandler struct {
	Run    RunFunc
	Logger *zap.Logger
}

// Handle derives the request origin, runs the enqueue workflow, and returns
// the aggregate counts. since_id may be supplied as a query parameter; the
// response carries newestId for the caller to persist as the next cursor.
func (h RunHandler) Handle(w http.ResponseWriter, r *http.Request) {
	origin, err := requestOrigin(r)
	if err != nil {
		h.logger().Error("error running daily workflow", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := h.Run(r.Context(), origin, r.URL.Query().Get("since_id"))
	if err != nil {
		h.logger().Error("error running daily workflow", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"runId":     result.RunID,
		"processed": result.Processed,
		"enqueued":  result.Enqueued,
		"errors":    result.Errors,
		"newestId":  result.NewestID,
		"details":   result.Details,
		"origin":    origin,
	})
}

func (h RunHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// requestOrigin rebuilds the scheme+host origin from the inbound request.
// There is no fallback: without a host the callback URL cannot be built.
func requestOrigin(r *http.Request) (string, error) {
	host := r.Host
	if host == "" {
		return "", errOriginUnavailable
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if strings.Contains(host, "localhost") {
		scheme = "http"
	}
	return scheme + "://" + host, nil
}
