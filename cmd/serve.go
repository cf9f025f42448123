package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgemoorlf/smootie/internal/api"
	"github.com/edgemoorlf/smootie/internal/chat"
	"github.com/edgemoorlf/smootie/internal/config"
	"github.com/edgemoorlf/smootie/internal/log"
	"github.com/edgemoorlf/smootie/internal/provider"
	"github.com/edgemoorlf/smootie/internal/session"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // SSE streaming needs longer timeout
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires the provider, session store, chat engine, and HTTP
// surface together, then serves until interrupted.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	logger.Info("starting smootie", "version", Version, "config", cfg)

	if cfg.APIKey == "" {
		logger.Warn("DASHSCOPE_API_KEY is not set; provider calls will fail")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prov, err := provider.NewOpenAI(provider.Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		ChatModel:       cfg.ChatModel,
		TranscribeModel: cfg.TranscribeModel,
		SpeechModel:     cfg.SpeechModel,
		SpeechVoice:     cfg.SpeechVoice,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	sessions := session.NewStore(logger)

	engine, err := chat.New(chat.Config{
		Completer:      prov,
		Sessions:       sessions,
		Logger:         logger,
		Persona:        cfg.Persona,
		HistoryLimit:   cfg.MaxHistoryTurns,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating chat engine: %w", err)
	}

	handler, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Engine:      engine,
		Sessions:    sessions,
		Transcriber: prov,
		Synthesizer: prov,
		StaticDir:   cfg.StaticDir,
		VideoDir:    cfg.VideoDir,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.Addr(),
		"chat", "/api/chat/stream",
		"health", "/health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
