package api

import (
	"errors"
	"net/http"

	"github.com/edgemoorlf/smootie/internal/chat"
	"github.com/edgemoorlf/smootie/internal/log"
	"github.com/edgemoorlf/smootie/internal/provider"
	"github.com/edgemoorlf/smootie/internal/session"
)

// ServerConfig carries the dependencies of the HTTP surface.
type ServerConfig struct {
	Logger      log.Logger
	Engine      *chat.Engine
	Sessions    *session.Store
	Transcriber provider.Transcriber
	Synthesizer provider.Synthesizer

	// StaticDir is served at / and VideoDir at /videos/. Either may be
	// empty to disable that mount.
	StaticDir string
	VideoDir  string

	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
}

func (c ServerConfig) validate() error {
	if c.Logger == nil {
		return errors.New("api: logger is required")
	}
	if c.Engine == nil {
		return errors.New("api: engine is required")
	}
	if c.Sessions == nil {
		return errors.New("api: session store is required")
	}
	if c.Transcriber == nil {
		return errors.New("api: transcriber is required")
	}
	if c.Synthesizer == nil {
		return errors.New("api: synthesizer is required")
	}
	return nil
}

// NewServer builds the routed handler with the full middleware chain.
func NewServer(cfg ServerConfig) (http.Handler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	chatH := &chatHandler{engine: cfg.Engine, sessions: cfg.Sessions, logger: cfg.Logger}
	audioH := &audioHandler{transcriber: cfg.Transcriber, synthesizer: cfg.Synthesizer, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/stream", chatH.stream)
	mux.HandleFunc("POST /api/chat/clear", chatH.clear)
	mux.HandleFunc("POST /api/recognize", audioH.recognize)
	mux.HandleFunc("POST /api/tts/synthesize", audioH.synthesize)
	mux.HandleFunc("GET /health", healthHandler)

	if cfg.VideoDir != "" {
		mux.Handle("GET /videos/", http.StripPrefix("/videos/", http.FileServer(http.Dir(cfg.VideoDir))))
	}
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(cfg.Logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(cfg.Logger)(handler)

	return handler, nil
}
