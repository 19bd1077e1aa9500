package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mm-mentions-bot/internal/dedup"
	"mm-mentions-bot/internal/twitter"
	"mm-mentions-bot/internal/types"

	"go.uber.org/zap"
)

// statusCompleted is the only status that triggers a reply. Any other status
// is acknowledged and logged without posting.
const statusCompleted = "completed"

// ValidationError marks a malformed callback payload; routes map it to a
// 400 response.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// IsValidation reports whether err stems from payload validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CallbackResult reports how one completion event was handled.
type CallbackResult struct {
	Acknowledged   bool   `json:"acknowledged"`
	Replied        bool   `json:"replied"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	ParentID       string `json:"parentId"`
	IdempotencyKey string `json:"idempotencyKey"`
	Status         string `json:"status"`
}

// CallbackWorkflow validates completion events from the product service and
// posts the reply closing the loop.
type CallbackWorkflow struct {
	replier  twitter.Replier
	template string
	ledger   *dedup.Ledger
	logger   *zap.Logger
}

// NewCallbackWorkflow wires the workflow. template must contain a {url}
// placeholder. ledger may be nil to disable local duplicate suppression.
func NewCallbackWorkflow(replier twitter.Replier, template string, ledger *dedup.Ledger, logger *zap.Logger) *CallbackWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackWorkflow{
		replier:  replier,
		template: template,
		ledger:   ledger,
		logger:   logger,
	}
}

// Handle processes one callback. A payload missing required fields fails
// with a ValidationError before any side effect. Non-completed statuses are
// acknowledged without replying. A completed status posts exactly one reply,
// with the mockup image attached when the payload carries one; a redelivered
// key is acknowledged as a duplicate instead of replying again.
func (w *CallbackWorkflow) Handle(ctx context.Context, payload types.ProductCallbackPayload) (CallbackResult, error) {
	if err := validatePayload(payload); err != nil {
		return CallbackResult{}, err
	}

	result := CallbackResult{
		Acknowledged:   true,
		ParentID:       payload.ParentID,
		IdempotencyKey: payload.IdempotencyKey,
		Status:         payload.Status,
	}

	if payload.Status != statusCompleted {
		w.logger.Info("received non-completed status, logging only",
			zap.String("status", payload.Status),
			zap.String("parent_id", payload.ParentID))
		return result, nil
	}

	if w.ledger != nil && !w.ledger.FirstDelivery(payload.IdempotencyKey) {
		w.logger.Info("duplicate callback delivery suppressed",
			zap.String("idempotency_key", payload.IdempotencyKey),
			zap.String("parent_id", payload.ParentID))
		result.Duplicate = true
		return result, nil
	}

	text := strings.ReplaceAll(w.template, "{url}", payload.ProductURL)
	w.logger.Info("posting reply for parent tweet", zap.String("parent_id", payload.ParentID))

	_, err := w.replier.ReplyWithMedia(ctx, twitter.ReplyRequest{
		ParentID: payload.ParentID,
		Text:     text,
		ImageURL: payload.MockupImageURL,
	})
	if err != nil {
		if w.ledger != nil {
			w.ledger.Forget(payload.IdempotencyKey)
		}
		return CallbackResult{}, err
	}

	result.Replied = true
	return result, nil
}

func validatePayload(payload types.ProductCallbackPayload) error {
	if payload.ParentID == "" {
		return &ValidationError{Field: "parentId"}
	}
	if payload.ProductURL == "" {
		return &ValidationError{Field: "productUrl"}
	}
	if payload.IdempotencyKey == "" {
		return &ValidationError{Field: "idempotencyKey"}
	}
	return nil
}
