// Package product holds the client for the external merch generation service.
package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// EnqueueRequest is the job submission payload. Type is always "tweet".
type EnqueueRequest struct {
	ParentID       string `json:"parentId"`
	ImageURL       string `json:"imageUrl"`
	Type           string `json:"type"`
	CallbackURL    string `json:"callbackUrl"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Port is the capability for submitting merch generation jobs.
type Port interface {
	Enqueue(ctx context.Context, req EnqueueRequest) error
}

// Client submits jobs to the product service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *zap.Logger
}

// NewClient builds a Client for the configured service URL. apiKey may be
// empty; when set it is sent as a bearer token.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client, logger: logger}
}

// Enqueue submits one merch generation job. The service must answer 2xx with
// a body whose status field is "accepted"; anything else is an error for
// this job only.
func (c *Client) Enqueue(ctx context.Context, job EnqueueRequest) error {
	if job.Type == "" {
		job.Type = "tweet"
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", job.IdempotencyKey)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("product service HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("product service returned malformed body: %w", err)
	}
	if out.Status != "accepted" {
		return fmt.Errorf("product service returned status: %s", out.Status)
	}

	c.logger.Info("merch request accepted",
		zap.String("parent_id", job.ParentID),
		zap.String("idempotency_key", job.IdempotencyKey))
	return nil
}
