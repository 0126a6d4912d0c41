// File: internal/infra/adapters/ai/stream_client.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
	"chatanon/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.StreamClient = (*HTTPStreamClient)(nil)

// HTTPStreamClient consumes the upstream streaming protocol. The endpoint
// URL and credential come from the session's ModelConfig row, so one
// client instance serves every configured model. The http.Client is the
// process-wide shared transport; it holds no turn state.
type HTTPStreamClient struct {
	client *http.Client
	log    *zerolog.Logger
}

func NewHTTPStreamClient(client *http.Client, logger *zerolog.Logger) *HTTPStreamClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPStreamClient{client: client, log: logger}
}

func (s *HTTPStreamClient) StreamGenerate(ctx context.Context, cfg *model.ModelConfig, messages []adapter.Message) (<-chan adapter.StreamChunk, error) {
	reqBody := chatRequest{
		Model:     cfg.Version,
		Messages:  messages,
		MaxTokens: cfg.MaxTokens,
		Stream:    true,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream connect: %w", err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("upstream http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	out := make(chan adapter.StreamChunk)
	go s.readLoop(ctx, resp.Body, out)
	return out, nil
}

// readLoop runs on its own goroutine so the caller gets a live channel
// immediately. It closes the body and the channel on every exit path;
// context cancellation aborts the underlying read.
func (s *HTTPStreamClient) readLoop(ctx context.Context, body io.ReadCloser, out chan<- adapter.StreamChunk) {
	defer close(out)
	defer body.Close()

	start := time.Now()
	err := decodeStream(body, func(f frame) error {
		chunk := adapter.StreamChunk{Raw: f.raw, Delta: f.delta, Done: f.done}
		switch {
		case f.done:
			metrics.StreamFrame("done")
		case f.delta != "":
			metrics.StreamFrame("delta")
		default:
			metrics.StreamFrame("raw_only")
		}
		select {
		case out <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		if s.log != nil {
			s.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("upstream stream read failed")
		}
		select {
		case out <- adapter.StreamChunk{Err: fmt.Errorf("upstream read: %w", err)}:
		case <-ctx.Done():
		}
	}
}
