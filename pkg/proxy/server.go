package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"arcadehall/drawbridge/pkg/config"
	"arcadehall/drawbridge/pkg/proxy/middleware"
	"arcadehall/drawbridge/pkg/router"
	"arcadehall/drawbridge/pkg/upstream"
)

// Server is the front door: one listener for all three tiers.
type Server struct {
	config  *config.ServerConfig
	table   *router.Table
	static  *StaticHandler
	forward *Forwarder
	pool    *upstream.Pool

	// metricsHandler, when non-nil, is mounted on /metrics.
	metricsHandler http.Handler

	// observeRequest, when non-nil, records per-request metrics.
	observeRequest func(route, method string, status int, duration time.Duration)

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool

	logger *slog.Logger
}

// Options are the collaborators the server dispatches to.
type Options struct {
	Table     *router.Table
	Static    *StaticHandler
	Forwarder *Forwarder
	Pool      *upstream.Pool

	// MetricsHandler is mounted on /metrics when non-nil.
	MetricsHandler http.Handler

	// ObserveRequest records per-request metrics when non-nil.
	ObserveRequest func(route, method string, status int, duration time.Duration)

	Logger *slog.Logger
}

// NewServer creates the front door server.
func NewServer(cfg *config.ServerConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:         cfg,
		table:          opts.Table,
		static:         opts.Static,
		forward:        opts.Forwarder,
		pool:           opts.Pool,
		metricsHandler: opts.MetricsHandler,
		observeRequest: opts.ObserveRequest,
		logger:         logger.With("component", "proxy.server"),
	}
}

// Start starts the HTTP listener and blocks until ctx is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("front door listening", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully drains and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("front door stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the listener is up.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the complete handler: internal endpoints, then the
// route-table dispatch, wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	mux.Handle("/", http.HandlerFunc(s.dispatch))

	var handler http.Handler = mux

	if s.observeRequest != nil {
		routeOf := func(path string) string {
			return s.table.Match(path).Prefix
		}
		handler = middleware.Metrics(routeOf, s.observeRequest)(handler)
	}

	// Logging, then request ID, then recovery outermost.
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// dispatch classifies the request against the route table and hands it
// to the matching tier.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	rule := s.table.Match(r.URL.Path)

	switch rule.Kind {
	case router.TargetStatic:
		s.static.ServeHTTP(w, r)
	case router.TargetUpstream:
		s.forward.Forward(w, r, rule)
	default:
		writeError(w, http.StatusInternalServerError, "unroutable request")
	}
}

// handleHealth reports the front door's own liveness plus the current
// pool size, in the shape the backend health probes also use.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"upstreams": s.pool.Len(),
		"timestamp": time.Now().UTC(),
	})
}
