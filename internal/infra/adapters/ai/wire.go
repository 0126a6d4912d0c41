// File: internal/infra/adapters/ai/wire.go
package ai

import (
	"chatanon/internal/domain/ports/adapter"
)

// Typed request/response bodies for the upstream chat-completions shape.
// Two call shapes exist: classification (non-streaming, zero temperature)
// and generation (streaming or blocking).

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []adapter.Message `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
	Temperature *float64          `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message adapter.Message `json:"message"`
	} `json:"choices"`
}

// streamFrame is the JSON body of one "data:" frame.
type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func zeroTemperature() *float64 {
	t := 0.0
	return &t
}
