// Package workflows contains the two halves of the mention-to-merch loop:
// the enqueue run that turns fresh mentions into product service jobs, and
// the callback handler that closes each job with a reply.
package workflows

import (
	"context"
	"fmt"
	"net/url"

	"mm-mentions-bot/internal/product"
	"mm-mentions-bot/internal/twitter"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxMentionsPerRun caps how many candidates one run enqueues.
const maxMentionsPerRun = 5

// CandidateSource yields merch candidates from the mention feed.
type CandidateSource interface {
	ResolveCandidates(ctx context.Context, limit int, opts twitter.ResolveOptions) (twitter.Resolution, error)
}

// EnqueueDetail records the outcome for one candidate.
type EnqueueDetail struct {
	ParentID  string `json:"parentId"`
	MentionID string `json:"mentionId"`
	Enqueued  bool   `json:"enqueued"`
	Error     string `json:"error,omitempty"`
}

// EnqueueResult aggregates one run. Processed always equals
// Enqueued + Errors. NewestID is the mention cursor for the caller to pass
// back on the next run.
type EnqueueResult struct {
	RunID     string          `json:"runId"`
	Processed int             `json:"processed"`
	Enqueued  int             `json:"enqueued"`
	Errors    int             `json:"errors"`
	NewestID  string          `json:"newestId,omitempty"`
	Details   []EnqueueDetail `json:"details"`
}

// EnqueueWorkflow drives candidate resolution and job submission.
type EnqueueWorkflow struct {
	source       CandidateSource
	product      product.Port
	callbackPath string
	logger       *zap.Logger
}

// NewEnqueueWorkflow wires the workflow. callbackPath is resolved against
// the per-run origin to form the absolute callback URL.
func NewEnqueueWorkflow(source CandidateSource, productPort product.Port, callbackPath string, logger *zap.Logger) *EnqueueWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnqueueWorkflow{
		source:       source,
		product:      productPort,
		callbackPath: callbackPath,
		logger:       logger,
	}
}

// Run resolves up to five candidates and submits each as a merch job.
// origin must come from the inbound request; an empty origin is an error,
// never defaulted. A failed submission is recorded and does not stop the
// remaining candidates. sinceID is the externalized mention cursor and may
// be empty on the first run.
func (w *EnqueueWorkflow) Run(ctx context.Context, origin, sinceID string) (EnqueueResult, error) {
	callbackURL, err := resolveCallbackURL(origin, w.callbackPath)
	if err != nil {
		return EnqueueResult{}, err
	}

	resolution, err := w.source.ResolveCandidates(ctx, maxMentionsPerRun, twitter.ResolveOptions{SinceID: sinceID})
	if err != nil {
		return EnqueueResult{}, err
	}

	result := EnqueueResult{
		RunID:    uuid.NewString(),
		NewestID: resolution.NewestID,
		Details:  make([]EnqueueDetail, 0, len(resolution.Candidates)),
	}
	logger := w.logger.With(zap.String("run_id", result.RunID))

	if len(resolution.Candidates) == 0 {
		logger.Info("no mention candidates with images found")
		return result, nil
	}

	for _, candidate := range resolution.Candidates {
		key := BuildIdempotencyKey(candidate.ParentID, candidate.MentionID)
		logger.Info("enqueueing merch generation",
			zap.String("parent_id", candidate.ParentID),
			zap.String("mention_id", candidate.MentionID))

		err := w.product.Enqueue(ctx, product.EnqueueRequest{
			ParentID:       candidate.ParentID,
			ImageURL:       candidate.ImageURL,
			Type:           "tweet",
			CallbackURL:    callbackURL,
			IdempotencyKey: key,
		})

		result.Processed++
		detail := EnqueueDetail{ParentID: candidate.ParentID, MentionID: candidate.MentionID}
		if err != nil {
			result.Errors++
			detail.Error = err.Error()
			logger.Warn("merch enqueue failed",
				zap.String("parent_id", candidate.ParentID),
				zap.Error(err))
		} else {
			result.Enqueued++
			detail.Enqueued = true
		}
		result.Details = append(result.Details, detail)
	}

	return result, nil
}

// BuildIdempotencyKey derives the deduplication key for a (parent, mention)
// pair. The same pair always yields the same key, across runs and processes;
// it is the only correlation carried through the product service.
func BuildIdempotencyKey(parentID, mentionID string) string {
	return fmt.Sprintf("tweet:%s:mention:%s", parentID, mentionID)
}

// resolveCallbackURL joins the configured callback path with the inbound
// request's origin.
func resolveCallbackURL(origin, callbackPath string) (string, error) {
	if origin == "" {
		return "", fmt.Errorf("unable to determine request origin for callback URL")
	}
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid request origin %q for callback URL", origin)
	}
	ref, err := url.Parse(callbackPath)
	if err != nil {
		return "", fmt.Errorf("invalid callback path %q: %w", callbackPath, err)
	}
	return base.ResolveReference(ref).String(), nil
}
