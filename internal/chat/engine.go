// Package chat contains the streaming orchestration core: it turns one
// user utterance into an incrementally-delivered model response, decodes
// interleaved tool-call fragments, and commits finished turns to the
// session store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/edgemoorlf/smootie/internal/log"
	"github.com/edgemoorlf/smootie/internal/provider"
	"github.com/edgemoorlf/smootie/internal/session"
)

// Sentinel errors checked by the HTTP layer with errors.Is().
var (
	// ErrEmptyMessage indicates the request carried no user text. No
	// provider call is made and the session store is untouched.
	ErrEmptyMessage = errors.New("empty message")
)

// Defaults for optional Config values. Sampling is request-independent:
// short, low-latency replies by design.
const (
	DefaultHistoryLimit   = 20
	DefaultTemperature    = 0.8
	DefaultMaxTokens      = 256
	DefaultRequestTimeout = 2 * time.Minute
)

// EventType tags one downstream event of a streamed turn.
type EventType string

const (
	// EventText carries exactly one text delta, never the cumulative
	// buffer; clients reconstruct the full text themselves.
	EventText EventType = "text"

	// EventFunctionCall carries one decoded action invocation.
	EventFunctionCall EventType = "function_call"

	// EventDone is terminal and carries the full accumulated text.
	EventDone EventType = "done"
)

// Event is one normalized unit of a streamed turn.
type Event struct {
	Type     EventType
	Content  string
	Function *FunctionCall
}

// FunctionCall is the payload of an EventFunctionCall event.
type FunctionCall struct {
	Name      string             `json:"name"`
	Arguments session.Invocation `json:"arguments"`
}

// Request is one chat turn from the client.
type Request struct {
	Message   string   `json:"message"`
	SessionID string   `json:"session_id"`
	Actions   []Action `json:"actions"`
}

// Config contains the engine's dependencies and tuning.
type Config struct {
	Completer provider.Completer
	Sessions  *session.Store
	Logger    log.Logger

	Persona        string        // system instruction base; default DefaultPersona
	HistoryLimit   int           // max turns read for prompt construction
	Temperature    float64       // fixed sampling temperature
	MaxTokens      int64         // fixed completion ceiling
	RequestTimeout time.Duration // per-turn deadline on the provider call
}

func (cfg Config) validate() error {
	if cfg.Completer == nil {
		return errors.New("completer is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	return nil
}

// Engine executes chat turns end-to-end as live, incrementally-observed
// operations. It is stateless across requests; the session store is the
// only shared state, injected at construction.
type Engine struct {
	completer      provider.Completer
	sessions       *session.Store
	logger         log.Logger
	persona        string
	historyLimit   int
	temperature    float64
	maxTokens      int64
	requestTimeout time.Duration
}

// New creates an Engine, applying defaults for unset tuning values.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	persona := cfg.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Engine{
		completer:      cfg.Completer,
		sessions:       cfg.Sessions,
		logger:         logger,
		persona:        persona,
		historyLimit:   historyLimit,
		temperature:    temperature,
		maxTokens:      maxTokens,
		requestTimeout: timeout,
	}, nil
}

// Stream runs one chat turn. Events are yielded in provider arrival
// order; EventDone is always last on success. A yielded error is terminal:
// nothing follows it and the turn is not committed to the session. The
// caller stopping the iteration early (client disconnect) also skips the
// commit.
func (e *Engine) Stream(ctx context.Context, req Request) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		if strings.TrimSpace(req.Message) == "" {
			yield(Event{}, ErrEmptyMessage)
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = session.DefaultID
		}

		ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
		defer cancel()

		history := e.sessions.Recent(sessionID, e.historyLimit)

		preq := provider.Request{
			Messages:    buildMessages(e.persona, req.Actions, history, req.Message),
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		}
		hasActions := len(req.Actions) > 0
		known := make(map[string]bool, len(req.Actions))
		if hasActions {
			preq.Tools = []provider.Tool{actionTool()}
			for _, a := range req.Actions {
				known[a.Name] = true
			}
		}

		e.logger.Debug("dispatching completion",
			"session_id", sessionID,
			"history_turns", len(history),
			"actions", len(req.Actions),
		)

		var full strings.Builder
		var invocations []session.Invocation

		for inc, err := range e.completer.Complete(ctx, preq) {
			if err != nil {
				e.logger.Warn("completion failed", "session_id", sessionID, "error", err)
				yield(Event{}, err)
				return
			}

			if hasActions && inc.ToolCall != nil {
				inv, ok := decodeInvocation(inc.ToolCall)
				if !ok {
					// Providers emit partial fragments mid-stream by
					// design; skip rather than abort the turn.
					e.logger.Debug("skipping undecodable tool call",
						"session_id", sessionID,
						"name", inc.ToolCall.Name,
					)
					continue
				}
				if !known[inv.Action] {
					e.logger.Debug("skipping tool call for unknown action",
						"session_id", sessionID,
						"action", inv.Action,
					)
					continue
				}
				invocations = append(invocations, inv)
				call := &FunctionCall{Name: inc.ToolCall.Name, Arguments: inv}
				if !yield(Event{Type: EventFunctionCall, Function: call}, nil) {
					return
				}
				continue
			}

			if inc.Text != "" {
				full.WriteString(inc.Text)
				if !yield(Event{Type: EventText, Content: inc.Text}, nil) {
					return
				}
			}
		}

		e.sessions.AppendExchange(sessionID, req.Message, full.String(), invocations)

		e.logger.Debug("turn complete",
			"session_id", sessionID,
			"response_chars", full.Len(),
			"invocations", len(invocations),
		)

		yield(Event{Type: EventDone, Content: full.String()}, nil)
	}
}

// decodeInvocation parses a tool call's argument payload. Malformed
// payloads and calls missing the required action name report false.
func decodeInvocation(call *provider.ToolCall) (session.Invocation, bool) {
	var inv session.Invocation
	if err := json.Unmarshal([]byte(call.Arguments), &inv); err != nil {
		return session.Invocation{}, false
	}
	if inv.Action == "" {
		return session.Invocation{}, false
	}
	return inv, true
}
