package ai

import (
	"reflect"
	"strings"
	"testing"
)

const sampleTranscript = `: keep-alive

data: {"choices":[{"delta":{"content":"Hel"}}]}
event: noise
data: {"choices":[{"delta":{"content":"lo"}}]}
data: {"unexpected":"shape"}
data: [DONE]
data: {"choices":[{"delta":{"content":"never read"}}]}
`

func collect(t *testing.T, transcript string) []frame {
	t.Helper()
	var got []frame
	if err := decodeStream(strings.NewReader(transcript), func(f frame) error {
		got = append(got, f)
		return nil
	}); err != nil {
		t.Fatalf("decodeStream: %v", err)
	}
	return got
}

func TestDecodeStream(t *testing.T) {
	got := collect(t, sampleTranscript)
	want := []frame{
		{raw: `{"choices":[{"delta":{"content":"Hel"}}]}`, delta: "Hel"},
		{raw: `{"choices":[{"delta":{"content":"lo"}}]}`, delta: "lo"},
		{raw: `{"unexpected":"shape"}`},
		{raw: "[DONE]", done: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("frames = %#v, want %#v", got, want)
	}
}

func TestDecodeStreamIdempotent(t *testing.T) {
	first := collect(t, sampleTranscript)
	second := collect(t, sampleTranscript)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two decodes of the same transcript differ: %#v vs %#v", first, second)
	}
}

func TestDecodeFrameInsignificantLines(t *testing.T) {
	for _, line := range []string{"", ": comment", "event: emotion", "id: 4", "freeform noise"} {
		if _, ok := decodeFrame(line); ok {
			t.Fatalf("line %q should be insignificant", line)
		}
	}
}

func TestDecodeFramePayloadTrimming(t *testing.T) {
	f, ok := decodeFrame("data:   [DONE]  ")
	if !ok || !f.done {
		t.Fatalf("padded [DONE] should decode as terminal, got %#v ok=%v", f, ok)
	}
	f, ok = decodeFrame(`data:{"choices":[{"delta":{"content":" x"}}]}`)
	if !ok || f.delta != " x" {
		t.Fatalf("no-space data: prefix should still decode, got %#v ok=%v", f, ok)
	}
}

func TestDecodeStreamInvalidJSONStillRelayed(t *testing.T) {
	got := collect(t, "data: not-json\ndata: [DONE]\n")
	if len(got) != 2 || got[0].raw != "not-json" || got[0].delta != "" {
		t.Fatalf("invalid JSON frame should be relayed raw with empty delta, got %#v", got)
	}
}

func TestDecodeStreamWithoutSentinel(t *testing.T) {
	var done bool
	err := decodeStream(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n"), func(f frame) error {
		done = f.done
		return nil
	})
	if err != nil {
		t.Fatalf("EOF without sentinel is not a decoder error: %v", err)
	}
	if done {
		t.Fatal("no terminal frame expected")
	}
}
