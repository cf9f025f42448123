package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAdapter points an adapter at a local fake of the completion API.
func newTestAdapter(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAI(Config{
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		ChatModel:       "test-model",
		TranscribeModel: "test-asr",
		SpeechModel:     "test-tts",
		SpeechVoice:     "TestVoice",
	})
	require.NoError(t, err)
	return p
}

// writeChunks emits canned completion chunks as an SSE body.
func writeChunks(t *testing.T, w http.ResponseWriter, chunks ...string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		_, err := fmt.Fprintf(w, "data: %s\n\n", c)
		require.NoError(t, err)
	}
	_, err := io.WriteString(w, "data: [DONE]\n\n")
	require.NoError(t, err)
}

func textChunk(delta string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"test-model","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, delta)
}

func toolChunk(index int, id, name, args string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"test-model","choices":[{"index":0,"delta":{"tool_calls":[{"index":%d,"id":%q,"type":"function","function":{"name":%q,"arguments":%q}}]},"finish_reason":null}]}`,
		index, id, name, args)
}

func finishChunk(reason string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"test-model","choices":[{"index":0,"delta":{},"finish_reason":%q}]}`, reason)
}

func drain(t *testing.T, p *OpenAI, req Request) ([]Increment, error) {
	t.Helper()
	var incs []Increment
	for inc, err := range p.Complete(context.Background(), req) {
		if err != nil {
			return incs, err
		}
		incs = append(incs, inc)
	}
	return incs, nil
}

func TestNewOpenAIRequiresChatModel(t *testing.T) {
	_, err := NewOpenAI(Config{})
	require.Error(t, err)
}

func TestCompleteTextDeltas(t *testing.T) {
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		writeChunks(t, w,
			textChunk("Hel"),
			textChunk("lo"),
			textChunk(" world"),
			finishChunk("stop"),
		)
	})

	incs, err := drain(t, p, Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	require.Len(t, incs, 3)

	var full strings.Builder
	for _, inc := range incs {
		assert.Nil(t, inc.ToolCall)
		full.WriteString(inc.Text)
	}
	assert.Equal(t, "Hello world", full.String())
}

func TestCompleteAssemblesToolCall(t *testing.T) {
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeChunks(t, w,
			toolChunk(0, "call_1", "trigger_video_action", `{"action":`),
			toolChunk(0, "", "", `"wave","video":"wave.mp4"}`),
			finishChunk("tool_calls"),
		)
	})

	incs, err := drain(t, p, Request{
		Messages: []Message{{Role: RoleUser, Content: "wave"}},
		Tools:    []Tool{{Name: "trigger_video_action", Parameters: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	require.Len(t, incs, 1)

	call := incs[0].ToolCall
	require.NotNil(t, call)
	assert.Equal(t, "trigger_video_action", call.Name)
	assert.JSONEq(t, `{"action":"wave","video":"wave.mp4"}`, call.Arguments)
}

func TestCompleteRequestBody(t *testing.T) {
	var body struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int64   `json:"max_tokens"`
		Stream      bool    `json:"stream"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Tools []struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tools"`
	}

	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeChunks(t, w, textChunk("ok"), finishChunk("stop"))
	})

	_, err := drain(t, p, Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "persona"},
			{Role: RoleUser, Content: "q"},
			{Role: RoleAssistant, Content: "a"},
			{Role: RoleUser, Content: "q2"},
		},
		Tools:       []Tool{{Name: "trigger_video_action", Parameters: map[string]any{"type": "object"}}},
		Temperature: 0.7,
		MaxTokens:   128,
	})
	require.NoError(t, err)

	assert.Equal(t, "test-model", body.Model)
	assert.Equal(t, 0.7, body.Temperature)
	assert.Equal(t, int64(128), body.MaxTokens)
	assert.True(t, body.Stream)

	require.Len(t, body.Messages, 4)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "assistant", body.Messages[2].Role)

	require.Len(t, body.Tools, 1)
	assert.Equal(t, "function", body.Tools[0].Type)
	assert.Equal(t, "trigger_video_action", body.Tools[0].Function.Name)
}

func TestCompleteNoToolsOmitted(t *testing.T) {
	var raw map[string]json.RawMessage
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeChunks(t, w, textChunk("ok"), finishChunk("stop"))
	})

	_, err := drain(t, p, Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.NotContains(t, raw, "tools")
}

func TestCompleteErrorCarriesStatus(t *testing.T) {
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"rate_limit_error"}}`)
	})

	_, err := drain(t, p, Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Contains(t, perr.Message, "rate limited")
}

func TestTranscribe(t *testing.T) {
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-asr", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"hello smootie"}`)
	})

	text, err := p.Transcribe(context.Background(), strings.NewReader("RIFFfake"), "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello smootie", text)
}

func TestSynthesizeBuffersFullBody(t *testing.T) {
	mp3 := []byte("ID3-fake-mp3-bytes")
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)

		var body struct {
			Model string `json:"model"`
			Voice string `json:"voice"`
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-tts", body.Model)
		assert.Equal(t, "TestVoice", body.Voice)
		assert.Equal(t, "say this", body.Input)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(mp3)
	})

	audio, err := p.Synthesize(context.Background(), "say this")
	require.NoError(t, err)
	assert.Equal(t, mp3, audio)
}

func TestSynthesizeError(t *testing.T) {
	p := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"text too long"}}`)
	})

	_, err := p.Synthesize(context.Background(), "way too much text")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
}
