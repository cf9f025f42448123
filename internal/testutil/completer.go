package testutil

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/edgemoorlf/smootie/internal/provider"
)

// Step is one scripted increment: exactly one of Text, ToolCall, or Err
// should be set.
type Step struct {
	Text     string
	ToolCall *provider.ToolCall
	Err      error
}

// TextSteps scripts a plain streamed reply, one step per delta.
func TextSteps(deltas ...string) []Step {
	steps := make([]Step, len(deltas))
	for i, d := range deltas {
		steps[i] = Step{Text: d}
	}
	return steps
}

// ScriptedCompleter is a provider.Completer that replays a fixed script
// and records every request it receives. Safe for concurrent use.
type ScriptedCompleter struct {
	mu       sync.Mutex
	steps    []Step
	requests []provider.Request
}

var _ provider.Completer = (*ScriptedCompleter)(nil)

func NewScriptedCompleter(steps ...Step) *ScriptedCompleter {
	return &ScriptedCompleter{steps: steps}
}

// Complete replays the script. Context cancellation between increments
// surfaces as the context's error, mirroring a real streaming client.
func (c *ScriptedCompleter) Complete(ctx context.Context, req provider.Request) iter.Seq2[provider.Increment, error] {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	steps := c.steps
	c.mu.Unlock()

	return func(yield func(provider.Increment, error) bool) {
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				yield(provider.Increment{}, err)
				return
			}
			if step.Err != nil {
				yield(provider.Increment{}, step.Err)
				return
			}
			inc := provider.Increment{Text: step.Text, ToolCall: step.ToolCall}
			if !yield(inc, nil) {
				return
			}
		}
	}
}

// Requests returns a copy of every request seen so far.
func (c *ScriptedCompleter) Requests() []provider.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Calls returns how many times Complete was invoked.
func (c *ScriptedCompleter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// ErrScripted is a convenient sentinel for scripting provider failures.
var ErrScripted = errors.New("scripted provider failure")
