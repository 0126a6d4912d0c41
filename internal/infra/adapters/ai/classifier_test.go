package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatanon/internal/domain/ports/adapter"
)

func classifierServer(t *testing.T, reply string, check func(chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(req)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassifyStripsSystemEntries(t *testing.T) {
	srv := classifierServer(t, "happy", func(req chatRequest) {
		if req.Stream {
			t.Error("classification must not stream")
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Error("classification must pin temperature to zero")
		}
		if req.MaxTokens != 100 {
			t.Errorf("max_tokens = %d, want 100", req.MaxTokens)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("messages = %d, want instruction + dialogue blob", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != "classify this" {
			t.Errorf("instruction message = %+v", req.Messages[0])
		}
		var dialogue []adapter.Message
		if err := json.Unmarshal([]byte(req.Messages[1].Content), &dialogue); err != nil {
			t.Fatalf("dialogue blob is not JSON: %v", err)
		}
		for _, m := range dialogue {
			if m.Role == "system" {
				t.Errorf("system entry leaked into classifier dialogue: %+v", m)
			}
		}
		if len(dialogue) != 2 {
			t.Errorf("dialogue = %+v, want the two non-system turns", dialogue)
		}
	})
	defer srv.Close()

	c := NewHTTPEmotionClassifier(srv.Client(), 100)
	label, err := c.Classify(context.Background(), testModelConfig(srv.URL), "classify this", []adapter.Message{
		{Role: "system", Content: "You are Aria."},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != "happy" {
		t.Fatalf("label = %q", label)
	}
}

func TestClassifyKeepsFirstLineOnly(t *testing.T) {
	srv := classifierServer(t, "  sad \nThe user seems down because...", nil)
	defer srv.Close()

	c := NewHTTPEmotionClassifier(srv.Client(), 100)
	label, err := c.Classify(context.Background(), testModelConfig(srv.URL), "i", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != "sad" {
		t.Fatalf("label = %q, want first line trimmed", label)
	}
}

func TestClassifyEmptyContentFallsBack(t *testing.T) {
	srv := classifierServer(t, "   ", nil)
	defer srv.Close()

	c := NewHTTPEmotionClassifier(srv.Client(), 100)
	label, err := c.Classify(context.Background(), testModelConfig(srv.URL), "i", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != DefaultEmotion {
		t.Fatalf("label = %q, want %q", label, DefaultEmotion)
	}
}

func TestClassifyHTTPErrorSurfacesToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPEmotionClassifier(srv.Client(), 100)
	if _, err := c.Classify(context.Background(), testModelConfig(srv.URL), "i", nil); err == nil {
		t.Fatal("expected an error; the fallback policy lives in the orchestrator")
	}
}
