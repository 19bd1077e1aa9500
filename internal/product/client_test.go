package product

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEnqueueSendsPayloadAndHeaders(t *testing.T) {
	var (
		gotKey    string
		gotAuth   string
		gotBody   map[string]any
		gotMethod string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "svc-key", 5*time.Second, nil)

	err := client.Enqueue(context.Background(), EnqueueRequest{
		ParentID:       "p1",
		ImageURL:       "https://img/p1.jpg",
		CallbackURL:    "https://bot.example/api/product-callback",
		IdempotencyKey: "tweet:p1:mention:m1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotKey != "tweet:p1:mention:m1" {
		t.Fatalf("unexpected idempotency header %q", gotKey)
	}
	if gotAuth != "Bearer svc-key" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotBody["type"] != "tweet" {
		t.Fatalf("expected type tweet, got %v", gotBody["type"])
	}
	if gotBody["parentId"] != "p1" || gotBody["imageUrl"] != "https://img/p1.jpg" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if gotBody["callbackUrl"] != "https://bot.example/api/product-callback" {
		t.Fatalf("unexpected callback url %v", gotBody["callbackUrl"])
	}
}

func TestEnqueueOmitsAuthWithoutAPIKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, nil)
	if err := client.Enqueue(context.Background(), EnqueueRequest{IdempotencyKey: "k"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no authorization header, got %q", gotAuth)
	}
}

func TestEnqueueRejectsNonAcceptedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "throttled"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, nil)

	err := client.Enqueue(context.Background(), EnqueueRequest{IdempotencyKey: "k"})
	if err == nil {
		t.Fatal("expected error for non-accepted status")
	}
	if !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestEnqueueRejectsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, nil)

	err := client.Enqueue(context.Background(), EnqueueRequest{IdempotencyKey: "k"})
	if err == nil {
		t.Fatal("expected error for HTTP failure")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}
