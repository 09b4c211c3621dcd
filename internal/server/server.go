// ABOUTME: HTTP server wiring the API routes, auth middleware, and lifecycle
// ABOUTME: Manages graceful shutdown and health endpoints

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/versehq/verse-gateway/internal/auth"
	"github.com/versehq/verse-gateway/internal/bus"
	"github.com/versehq/verse-gateway/internal/store"
	"github.com/versehq/verse-gateway/internal/stream"
)

// Config holds the server's collaborators and settings.
type Config struct {
	Addr     string
	Bus      *bus.Bus
	Streams  *stream.Manager
	Store    store.Store
	Verifier auth.TokenVerifier
	Logger   *slog.Logger
}

// Server exposes the gateway's HTTP API: message intake, SSE streams,
// conversation history, and health checks.
type Server struct {
	bus        *bus.Bus
	streams    *stream.Manager
	store      store.Store
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		bus:     cfg.Bus,
		streams: cfg.Streams,
		store:   cfg.Store,
		logger:  logger.With("component", "server"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)

	authMiddleware := auth.Middleware(cfg.Verifier)
	mux.Handle("/api/messages", authMiddleware(http.HandlerFunc(s.handleSendMessage)))
	mux.Handle("/api/stream", authMiddleware(http.HandlerFunc(s.handleStream)))
	mux.Handle("/api/conversations/", authMiddleware(http.HandlerFunc(s.handleConversationMessages)))

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server. Active SSE streams close when
// their request contexts are canceled by the shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the orchestrator is consuming events.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.bus.SubscriberCount() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("orchestrator not subscribed"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
