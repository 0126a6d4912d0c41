// File: internal/infra/adapters/ai/classifier.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
	"chatanon/internal/infra/metrics"
)

// DefaultEmotion is returned when the model gives nothing usable.
const DefaultEmotion = "default"

// Compile-time assurance this adapter satisfies the port
var _ adapter.EmotionClassifier = (*HTTPEmotionClassifier)(nil)

// HTTPEmotionClassifier derives a short emotion label with one blocking,
// non-streaming call against the same chat-completions endpoint the
// generation uses. Zero temperature and a small output cap keep the call
// cheap; only a one-word label is expected back.
type HTTPEmotionClassifier struct {
	client    *http.Client
	maxTokens int
}

func NewHTTPEmotionClassifier(client *http.Client, maxTokens int) *HTTPEmotionClassifier {
	if client == nil {
		client = &http.Client{}
	}
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &HTTPEmotionClassifier{client: client, maxTokens: maxTokens}
}

func (c *HTTPEmotionClassifier) Classify(ctx context.Context, cfg *model.ModelConfig, instruction string, messages []adapter.Message) (string, error) {
	// The classifier must not see the role-play system prompts, only the
	// dialogue itself.
	dialogue := make([]adapter.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == string(model.RoleSystem) {
			continue
		}
		dialogue = append(dialogue, m)
	}
	blob, err := json.Marshal(dialogue)
	if err != nil {
		return "", fmt.Errorf("marshal dialogue: %w", err)
	}

	reqBody := chatRequest{
		Model: cfg.Version,
		Messages: []adapter.Message{
			{Role: string(model.RoleSystem), Content: instruction},
			{Role: string(model.RoleUser), Content: string(blob)},
		},
		MaxTokens:   c.maxTokens,
		Stream:      false,
		Temperature: zeroTemperature(),
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveAICall(cfg.Version, "classify", time.Since(start).Milliseconds(), false)
		return "", fmt.Errorf("classify connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.ObserveAICall(cfg.Version, "classify", time.Since(start).Milliseconds(), false)
		return "", fmt.Errorf("classify http %d", resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ObserveAICall(cfg.Version, "classify", time.Since(start).Milliseconds(), false)
		return "", fmt.Errorf("decode classify response: %w", err)
	}
	metrics.ObserveAICall(cfg.Version, "classify", time.Since(start).Milliseconds(), true)

	if len(payload.Choices) == 0 {
		return "", errors.New("classify: no choices")
	}
	content := strings.TrimSpace(payload.Choices[0].Message.Content)
	if content == "" {
		return DefaultEmotion, nil
	}
	// Keep only the first line; verbose models pad labels with prose.
	if i := strings.IndexByte(content, '\n'); i != -1 {
		content = strings.TrimSpace(content[:i])
	}
	return content, nil
}
