// Package session keeps per-session conversation history in memory.
//
// History is process-lifetime only: it starts empty, is never persisted,
// and is lost on restart. Sessions are keyed by an opaque string chosen by
// the client; no format is enforced.
package session

import "time"

// DefaultID is the session key used when a client omits session_id.
// Callers that need isolation must always supply an explicit identifier.
const DefaultID = "default"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Invocation is a decoded tool call identifying one triggered video action.
// It is kept on the assistant turn as contextual metadata; the completion
// provider cannot replay a function call from history.
type Invocation struct {
	Action   string `json:"action"`
	Video    string `json:"video"`
	HasAudio bool   `json:"has_audio"`
}

// Turn is one user or assistant message. Turns are immutable once appended.
type Turn struct {
	Role        Role
	Content     string
	Invocations []Invocation // assistant turns only
	CreatedAt   time.Time
}
