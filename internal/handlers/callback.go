package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mm-mentions-bot/internal/types"
	"mm-mentions-bot/internal/workflows"

	"go.uber.org/zap"
)

// CallbackFunc processes one product service completion event.
type CallbackFunc func(ctx context.Context, payload types.ProductCallbackPayload) (workflows.CallbackResult, error)

// CallbackHandler handles POST /api/product-callback webhooks.
type CallbackHandler struct {
	Callback CallbackFunc
	Logger   *zap.Logger
}

// Handle decodes the callback payload and runs the callback workflow.
// Validation failures come back as 400, everything else as 500; both use the
// standard error envelope.
func (h CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var payload types.ProductCallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload body")
		return
	}

	result, err := h.Callback(r.Context(), payload)
	if err != nil {
		h.logger().Error("error in product callback handler", zap.Error(err))
		status := http.StatusInternalServerError
		if workflows.IsValidation(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"result": result,
	})
}

func (h CallbackHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
