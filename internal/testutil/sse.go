package testutil

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"
)

// StreamFrame is one decoded chat stream frame. The transport uses
// data-only SSE frames ("data: <json>\n\n"); the frame type lives in
// the JSON payload rather than an "event:" field.
type StreamFrame struct {
	Type     string          `json:"type"`
	Content  string          `json:"content"`
	Function json.RawMessage `json:"function"`
	Code     int             `json:"code"`
}

// ParseStream decodes a chat SSE response body into frames.
//
// Every frame must be a single "data: <json>" line followed by a blank
// line; comments (":" prefix) are ignored. Anything else fails the test.
func ParseStream(t *testing.T, body string) []StreamFrame {
	t.Helper()

	var (
		frames  []StreamFrame
		pending *string
		lineNum int
	)
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			if pending != nil {
				t.Fatalf("stream parse error at line %d: frame not terminated before %q", lineNum, line)
			}
			data := strings.TrimPrefix(line, "data: ")
			pending = &data

		case line == "":
			if pending == nil {
				continue
			}
			var frame StreamFrame
			if err := json.Unmarshal([]byte(*pending), &frame); err != nil {
				t.Fatalf("stream parse error at line %d: invalid JSON %q: %v", lineNum, *pending, err)
			}
			frames = append(frames, frame)
			pending = nil

		case strings.HasPrefix(line, ":"):
			// comment

		default:
			t.Fatalf("stream parse error at line %d: unexpected line %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("stream scan error: %v", err)
	}
	if pending != nil {
		t.Fatalf("stream ended without terminating frame %q (missing blank line)", *pending)
	}

	return frames
}

// FramesOfType returns the frames carrying the given type, in order.
func FramesOfType(frames []StreamFrame, typ string) []StreamFrame {
	var out []StreamFrame
	for _, f := range frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// JoinText concatenates the content of all "text" frames.
func JoinText(frames []StreamFrame) string {
	var b strings.Builder
	for _, f := range frames {
		if f.Type == "text" {
			b.WriteString(f.Content)
		}
	}
	return b.String()
}
