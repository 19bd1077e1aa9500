package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mm-mentions-bot/internal/dedup"
	"mm-mentions-bot/internal/twitter"
	"mm-mentions-bot/internal/types"
)

type spyReplier struct {
	requests []twitter.ReplyRequest
	err      error
}

func (s *spyReplier) ReplyWithMedia(_ context.Context, req twitter.ReplyRequest) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return "posted-1", nil
}

func completedPayload() types.ProductCallbackPayload {
	return types.ProductCallbackPayload{
		Status:         "completed",
		ParentID:       "p1",
		ProductURL:     "https://shop/x",
		IdempotencyKey: "k1",
	}
}

func TestHandleCompletedPostsReply(t *testing.T) {
	replier := &spyReplier{}
	wf := NewCallbackWorkflow(replier, "Buy: {url}", nil, nil)

	result, err := wf.Handle(context.Background(), completedPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Acknowledged || !result.Replied {
		t.Fatalf("expected acknowledged reply, got %+v", result)
	}
	if result.ParentID != "p1" || result.IdempotencyKey != "k1" || result.Status != "completed" {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(replier.requests) != 1 {
		t.Fatalf("expected one reply, got %d", len(replier.requests))
	}
	req := replier.requests[0]
	if req.Text != "Buy: https://shop/x" {
		t.Fatalf("unexpected reply text %q", req.Text)
	}
	if strings.Contains(req.Text, "{url}") {
		t.Fatal("template placeholder must be substituted")
	}
	if req.ParentID != "p1" {
		t.Fatalf("reply must target the parent, got %s", req.ParentID)
	}
	if req.ImageURL != "" {
		t.Fatalf("no mockup image expected, got %q", req.ImageURL)
	}
}

func TestHandleForwardsMockupImage(t *testing.T) {
	replier := &spyReplier{}
	wf := NewCallbackWorkflow(replier, "Buy: {url}", nil, nil)

	payload := completedPayload()
	payload.MockupImageURL = "https://img/mockup.png"

	if _, err := wf.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replier.requests[0].ImageURL != "https://img/mockup.png" {
		t.Fatalf("expected mockup forwarded, got %q", replier.requests[0].ImageURL)
	}
}

func TestHandleNonCompletedStatusAcknowledgesOnly(t *testing.T) {
	replier := &spyReplier{}
	wf := NewCallbackWorkflow(replier, "Buy: {url}", nil, nil)

	payload := completedPayload()
	payload.Status = "pending"

	result, err := wf.Handle(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Acknowledged || result.Replied {
		t.Fatalf("expected acknowledged without reply, got %+v", result)
	}
	if len(replier.requests) != 0 {
		t.Fatal("write port must not be called for non-completed status")
	}
}

func TestHandleValidation(t *testing.T) {
	cases := map[string]func(*types.ProductCallbackPayload){
		"parentId":       func(p *types.ProductCallbackPayload) { p.ParentID = "" },
		"productUrl":     func(p *types.ProductCallbackPayload) { p.ProductURL = "" },
		"idempotencyKey": func(p *types.ProductCallbackPayload) { p.IdempotencyKey = "" },
	}

	for field, clear := range cases {
		t.Run(field, func(t *testing.T) {
			replier := &spyReplier{}
			wf := NewCallbackWorkflow(replier, "Buy: {url}", nil, nil)

			payload := completedPayload()
			clear(&payload)

			_, err := wf.Handle(context.Background(), payload)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), field) {
				t.Fatalf("expected %s in error, got %v", field, err)
			}
			if len(replier.requests) != 0 {
				t.Fatal("validation failure must not reach the write port")
			}
		})
	}
}

func TestHandleSuppressesDuplicateDelivery(t *testing.T) {
	replier := &spyReplier{}
	wf := NewCallbackWorkflow(replier, "Buy: {url}", dedup.NewLedger(time.Hour), nil)

	if _, err := wf.Handle(context.Background(), completedPayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := wf.Handle(context.Background(), completedPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replied || !result.Duplicate || !result.Acknowledged {
		t.Fatalf("expected duplicate acknowledgement, got %+v", result)
	}
	if len(replier.requests) != 1 {
		t.Fatalf("expected exactly one reply across deliveries, got %d", len(replier.requests))
	}
}

func TestHandleReleasesKeyWhenReplyFails(t *testing.T) {
	replier := &spyReplier{err: errors.New("post failed")}
	wf := NewCallbackWorkflow(replier, "Buy: {url}", dedup.NewLedger(time.Hour), nil)

	if _, err := wf.Handle(context.Background(), completedPayload()); err == nil {
		t.Fatal("expected reply failure to propagate")
	}

	replier.err = nil
	result, err := wf.Handle(context.Background(), completedPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Replied || result.Duplicate {
		t.Fatalf("retry after failure must reply, got %+v", result)
	}
}

func TestHandlePendingDoesNotBurnKey(t *testing.T) {
	replier := &spyReplier{}
	wf := NewCallbackWorkflow(replier, "Buy: {url}", dedup.NewLedger(time.Hour), nil)

	pending := completedPayload()
	pending.Status = "pending"
	if _, err := wf.Handle(context.Background(), pending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := wf.Handle(context.Background(), completedPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Replied {
		t.Fatalf("completed after pending must reply, got %+v", result)
	}
}
