// File: internal/infra/adapters/ai/decoder.go
package ai

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// The upstream endpoint returns a continuous line-oriented body that is
// not guaranteed to be compliant SSE. Only lines starting with "data:"
// carry frames; everything else (comments, blank keep-alives) is ignored.

const (
	framePrefix  = "data:"
	doneSentinel = "[DONE]"
)

// frame is one decoded "data:" line.
type frame struct {
	// raw is the trimmed payload exactly as it appeared after the prefix.
	raw string
	// delta is choices[0].delta.content, "" when the path is absent or
	// the payload is not valid JSON. Such frames are still relayed raw.
	delta string
	done  bool
}

// decodeFrame parses one line of the upstream body. ok is false for
// insignificant lines.
func decodeFrame(line string) (frame, bool) {
	if !strings.HasPrefix(line, framePrefix) {
		return frame{}, false
	}
	payload := strings.TrimSpace(line[len(framePrefix):])
	if payload == doneSentinel {
		return frame{raw: payload, done: true}, true
	}
	f := frame{raw: payload}
	var body streamFrame
	if err := json.Unmarshal([]byte(payload), &body); err == nil && len(body.Choices) > 0 {
		f.delta = body.Choices[0].Delta.Content
	}
	return f, true
}

// decodeStream reads lines eagerly and invokes emit for every significant
// frame as it arrives. It stops after the done sentinel without reading
// further, or when emit returns an error. Running it twice over the same
// transcript yields the same frame sequence and terminal state.
func decodeStream(r io.Reader, emit func(frame) error) error {
	sc := bufio.NewScanner(r)
	// Frames carry whole model deltas; allow long lines.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		f, ok := decodeFrame(sc.Text())
		if !ok {
			continue
		}
		if err := emit(f); err != nil {
			return err
		}
		if f.done {
			return nil
		}
	}
	return sc.Err()
}
