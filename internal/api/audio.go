package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/edgemoorlf/smootie/internal/log"
	"github.com/edgemoorlf/smootie/internal/provider"
)

// maxAudioBytes bounds uploaded recordings. Browser push-to-talk clips
// are a few hundred KB; 15MB gives headroom for long utterances.
const maxAudioBytes = 15 << 20

// audioHandler serves speech recognition and synthesis.
type audioHandler struct {
	transcriber provider.Transcriber
	synthesizer provider.Synthesizer
	logger      log.Logger
}

// recognize handles POST /api/recognize. It expects a multipart form
// with the recording under the "audio" field and responds with the
// transcribed text.
func (h *audioHandler) recognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	text, err := h.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Error("transcription failed", "error", err, "filename", header.Filename)
		writeProviderError(w, err, "transcription failed")
		return
	}

	h.logger.Debug("transcribed audio", "filename", header.Filename, "chars", len(text))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "text": text})
}

// synthesize handles POST /api/tts/synthesize. The full MP3 is buffered
// from the provider before any response byte is written, so the client
// either receives a complete audio body or a JSON error, never a
// truncated stream presented as success.
func (h *audioHandler) synthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("synthesis failed", "error", err, "chars", len(req.Text))
		writeProviderError(w, err, "synthesis failed")
		return
	}

	h.logger.Debug("synthesized speech", "chars", len(req.Text), "bytes", len(audio))
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Debug("failed to write audio body", "error", err)
	}
}

// writeProviderError maps a provider failure onto the response: the
// upstream status code when one was reported, 502 otherwise.
func writeProviderError(w http.ResponseWriter, err error, fallback string) {
	var perr *provider.Error
	if errors.As(err, &perr) && perr.StatusCode >= 400 {
		writeError(w, perr.StatusCode, perr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, fallback)
}
