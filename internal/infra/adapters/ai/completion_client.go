// File: internal/infra/adapters/ai/completion_client.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
	"chatanon/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CompletionClient = (*HTTPCompletionClient)(nil)

// HTTPCompletionClient issues one blocking generation request. Used by the
// non-streaming chat path.
type HTTPCompletionClient struct {
	client *http.Client
}

func NewHTTPCompletionClient(client *http.Client) *HTTPCompletionClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPCompletionClient{client: client}
}

func (c *HTTPCompletionClient) Complete(ctx context.Context, cfg *model.ModelConfig, messages []adapter.Message) (string, error) {
	reqBody := chatRequest{
		Model:     cfg.Version,
		Messages:  messages,
		MaxTokens: cfg.MaxTokens,
		Stream:    false,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveAICall(cfg.Version, "complete", time.Since(start).Milliseconds(), false)
		return "", fmt.Errorf("upstream connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.ObserveAICall(cfg.Version, "complete", time.Since(start).Milliseconds(), false)
		return "", fmt.Errorf("upstream http %d", resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ObserveAICall(cfg.Version, "complete", time.Since(start).Milliseconds(), false)
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	metrics.ObserveAICall(cfg.Version, "complete", time.Since(start).Milliseconds(), true)

	for _, ch := range payload.Choices {
		if ch.Message.Content != "" {
			return ch.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}
