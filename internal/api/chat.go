package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/edgemoorlf/smootie/internal/chat"
	"github.com/edgemoorlf/smootie/internal/log"
	"github.com/edgemoorlf/smootie/internal/provider"
	"github.com/edgemoorlf/smootie/internal/session"
)

// maxChatBodyBytes bounds the chat request body (message plus catalog).
const maxChatBodyBytes = 1 << 20

// chatHandler serves the streaming chat endpoint and session clearing.
type chatHandler struct {
	engine   *chat.Engine
	sessions *session.Store
	logger   log.Logger
}

// streamEvent is the SSE data payload. Every frame is a bare
// "data: <json>\n\n" line whose type field selects the payload:
// text/done use content, function_call uses function, error uses content
// plus the provider status code when one was reported.
type streamEvent struct {
	Type     string             `json:"type"`
	Content  string             `json:"content,omitempty"`
	Function *chat.FunctionCall `json:"function,omitempty"`
	Code     int                `json:"code,omitempty"`
}

// stream handles POST /api/chat/stream.
//
// Validation failures are reported as plain JSON with a 4xx status: at
// that point no SSE bytes have been written. Once streaming starts, all
// failures surface as a terminal in-band error event instead.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var req chat.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	h.logger.Debug("chat stream started",
		"session_id", req.SessionID,
		"actions", len(req.Actions),
		"request_id", requestIDFromContext(ctx),
	)

	for event, err := range h.engine.Stream(ctx, req) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected mid-stream", "session_id", req.SessionID)
			return
		default:
		}

		if err != nil {
			h.writeStreamError(w, flusher, err)
			return
		}

		if writeErr := writeEvent(w, flusher, toStreamEvent(event)); writeErr != nil {
			// A write failure means the connection is gone; stopping the
			// loop abandons the turn without committing it.
			h.logger.Debug("stream write failed", "error", writeErr)
			return
		}
	}

	h.logger.Debug("chat stream completed", "session_id", req.SessionID)
}

// clear handles POST /api/chat/clear. Clearing an unknown session
// succeeds: the operation is idempotent.
func (h *chatHandler) clear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := req.SessionID
	if id == "" {
		id = session.DefaultID
	}
	h.sessions.Clear(id)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeStreamError converts a terminal engine error into an in-band SSE
// error event, carrying the provider's status code when available.
func (h *chatHandler) writeStreamError(w io.Writer, f http.Flusher, err error) {
	event := streamEvent{Type: "error", Content: err.Error()}

	var perr *provider.Error
	if errors.As(err, &perr) {
		event.Content = perr.Message
		event.Code = perr.StatusCode
	}

	if writeErr := writeEvent(w, f, event); writeErr != nil {
		h.logger.Debug("failed to write error event", "error", writeErr)
	}
}

func toStreamEvent(event chat.Event) streamEvent {
	return streamEvent{
		Type:     string(event.Type),
		Content:  event.Content,
		Function: event.Function,
	}
}

// writeEvent writes one SSE frame ("data: <json>\n\n") and flushes it
// immediately, so the client observes deltas with the provider's own
// latency profile.
func writeEvent(w io.Writer, flusher http.Flusher, event streamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
