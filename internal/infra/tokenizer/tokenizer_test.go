package tokenizer

import "testing"

func TestCountFallbackEstimate(t *testing.T) {
	c := NewCounter()
	// Model name no tiktoken encoding maps to: falls back to len/4.
	got := c.Count("deepseek-v3", "abcdefgh")
	if got != 2 {
		t.Fatalf("estimate = %d, want 2", got)
	}
	if c.Count("deepseek-v3", "") != 0 {
		t.Fatalf("empty text should count 0 tokens")
	}
	if c.Count("deepseek-v3", "hi") != 1 {
		t.Fatalf("short text should round up to 1 token")
	}
}
