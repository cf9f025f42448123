// Package provider wraps the remote model services smootie depends on:
// streaming chat completion, audio transcription, and speech synthesis.
//
// The completion boundary is a pull-based iterator of increments so the
// chat engine never sees a specific SDK's event shapes. The sequence is
// lazy, finite, and cannot be restarted.
package provider

import (
	"context"
	"fmt"
	"io"
	"iter"
)

// Role of a chat message sent to the provider.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt sent to the completion service.
type Message struct {
	Role    Role
	Content string
}

// Tool describes one callable function exposed to the model. Parameters
// is a JSON Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is one streaming completion call.
type Request struct {
	Messages    []Message
	Tools       []Tool
	Temperature float64
	MaxTokens   int64
}

// ToolCall is a completed function call assembled from the token stream.
// Arguments is the raw JSON payload; decoding is the caller's concern
// because providers may emit partial fragments mid-stream.
type ToolCall struct {
	Name      string
	Arguments string
}

// Increment is one unit of a live completion: either a text delta or a
// tool call, never both.
type Increment struct {
	Text     string
	ToolCall *ToolCall
}

// Completer produces a live completion as a sequence of increments.
// The sequence ends after the final increment; a non-nil error is
// terminal and no further increments follow it.
type Completer interface {
	Complete(ctx context.Context, req Request) iter.Seq2[Increment, error]
}

// Transcriber converts recorded audio into text. filename carries the
// upload's original name so the service can infer the container format.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Synthesizer renders text to speech. The returned bytes are the complete
// encoded audio: the adapter reads the service response to the end before
// returning, so callers never treat an error as a success signal.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Error is a failure reported by the remote service. StatusCode is the
// HTTP status the provider returned, or 0 for connection-level failures.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider: %s", e.Message)
	}
	return fmt.Sprintf("provider: status %d: %s", e.StatusCode, e.Message)
}
