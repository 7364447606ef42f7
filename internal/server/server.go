// Package server exposes the dashboard: a small embedded form UI and the
// multipart send API that drives the composition pipeline and the bulk
// orchestrator.
package server

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shineum/bulk-mailer/internal/email"
	"github.com/shineum/bulk-mailer/internal/provider"
)

//go:embed ui
var uiFS embed.FS

// shutdownTimeout is the maximum time to wait for in-flight requests during
// graceful shutdown.
const shutdownTimeout = 30 * time.Second

// ServerConfig holds the configuration for the dashboard server.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string

	// From is the verified sender identity stamped on every message.
	From email.Address

	// Transport is the email delivery backend.
	Transport provider.Transport

	// BatchSize and BatchDelay configure the bulk orchestrator.
	BatchSize  int
	BatchDelay time.Duration

	// MaxAttachments and MaxAttachmentSize are upload limits enforced here,
	// before anything reaches the composition pipeline.
	MaxAttachments    int
	MaxAttachmentSize int64

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config
}

// Server is the HTTP dashboard server.
type Server struct {
	config ServerConfig
	http   *http.Server
}

// New creates a new dashboard Server with the given configuration.
func New(cfg ServerConfig) *Server {
	s := &Server{config: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/send", s.handleSend)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		TLSConfig:         cfg.TLSConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts the dashboard server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("dashboard listening",
			"addr", s.config.ListenAddr,
			"transport", s.config.Transport.Name(),
			"tls_enabled", s.config.TLSConfig != nil,
		)
		var err error
		if s.config.TLSConfig != nil {
			err = s.http.ListenAndServeTLS("", "")
		} else {
			err = s.http.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down dashboard server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data, err := uiFS.ReadFile("ui/index.html")
	if err != nil {
		http.Error(w, "dashboard UI not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
