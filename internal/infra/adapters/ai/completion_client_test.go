package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteReturnsFirstNonEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("blocking path must not stream")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": ""}},
				{"message": map[string]string{"role": "assistant", "content": "full reply"}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPCompletionClient(srv.Client())
	got, err := c.Complete(context.Background(), testModelConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "full reply" {
		t.Fatalf("content = %q", got)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPCompletionClient(srv.Client())
	if _, err := c.Complete(context.Background(), testModelConfig(srv.URL), nil); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}
