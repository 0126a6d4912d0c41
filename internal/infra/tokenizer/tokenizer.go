// File: internal/infra/tokenizer/tokenizer.go
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"chatanon/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*Counter)(nil)

// Counter reports advisory token counts via tiktoken. Encodings are cached
// per model; unknown models fall back to a bytes/4 estimate.
type Counter struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) Count(modelVersion, text string) int {
	if text == "" {
		return 0
	}
	enc := c.encodingFor(modelVersion)
	if enc == nil {
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *Counter) encodingFor(modelVersion string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[modelVersion]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(modelVersion)
	if err != nil {
		// Non-OpenAI model names land here; cache the miss as nil.
		c.cache[modelVersion] = nil
		return nil
	}
	c.cache[modelVersion] = enc
	return enc
}

func estimate(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
