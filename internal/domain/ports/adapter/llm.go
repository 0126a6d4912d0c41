package adapter

import (
	"context"

	"chatanon/internal/domain/model"
)

// Message represents a chat message on the wire.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// StreamChunk is one decoded unit from the upstream streaming protocol.
// A well-formed stream ends with exactly one terminal chunk (Done or Err
// set); a channel closed without one means the upstream connection ended
// before the terminal sentinel arrived.
type StreamChunk struct {
	// Raw is the frame payload exactly as received, relayed to callers
	// even when no delta could be extracted from it.
	Raw string
	// Delta is the extracted content fragment, "" when the frame carried
	// no choices[0].delta.content path.
	Delta string
	Done  bool
	Err   error
}

// StreamClient opens one streaming generation request and yields decoded
// chunks in upstream arrival order. The returned channel is closed after
// the terminal chunk. An error from StreamGenerate itself means the
// stream never started (connect failure, non-success status).
type StreamClient interface {
	StreamGenerate(ctx context.Context, cfg *model.ModelConfig, messages []Message) (<-chan StreamChunk, error)
}

// EmotionClassifier derives a short emotion label from dialogue context
// with one blocking, non-streaming call. instruction is the emotion
// profile's system prompt. Errors are returned, not swallowed; the
// orchestrator decides the fallback policy.
type EmotionClassifier interface {
	Classify(ctx context.Context, cfg *model.ModelConfig, instruction string, messages []Message) (string, error)
}

// CompletionClient issues one blocking generation request and returns the
// full assistant text. Used by the non-streaming chat path.
type CompletionClient interface {
	Complete(ctx context.Context, cfg *model.ModelConfig, messages []Message) (string, error)
}

// TokenCounter reports advisory token counts for persisted messages
// (best-effort, provider counting rules are not enforced).
type TokenCounter interface {
	Count(modelVersion, text string) int
}
