package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/coordinator"
	"zoi/sentinel/pkg/reference"
	"zoi/sentinel/pkg/server/middleware"
	"zoi/sentinel/pkg/telemetry/health"
	"zoi/sentinel/pkg/telemetry/tracing"
)

// Service is the lookup surface served over HTTP. *coordinator.Coordinator
// implements it.
type Service interface {
	Lookup(ctx context.Context, rawKey string, forceRefresh bool) *coordinator.Result
	Status(ctx context.Context, rawKey string) *coordinator.ResearchStatus
	Products() []reference.Summary
	Stats(ctx context.Context) coordinator.Stats
}

var _ Service = (*coordinator.Coordinator)(nil)

// Options are the optional collaborators of a Server.
type Options struct {
	// Version is reported by /health.
	Version string

	// Health runs the checks behind /health and /ready. Nil reports healthy.
	Health *health.Checker

	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string

	// Recorder observes each routed request.
	Recorder middleware.RouteRecorder
}

// Server is the HTTP adapter.
type Server struct {
	cfg  config.ServerConfig
	svc  Service
	opts Options

	httpServer *http.Server
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	running   bool
	addr      net.Addr
	closeOnce sync.Once
}

// New creates a server for svc.
func New(cfg config.ServerConfig, svc Service, opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultMetricsPath
	}
	return &Server{
		cfg:    cfg,
		svc:    svc,
		opts:   opts,
		logger: slog.Default().With("component", "server"),
		now:    time.Now,
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /api/products", s.handleProducts)
	s.route(mux, "GET /api/products/{slug}", s.handleProduct)
	s.route(mux, "GET /api/products/{slug}/refresh", s.handleRefresh)
	s.route(mux, "GET /api/research-status/{slug}", s.handleResearchStatus)

	if s.opts.Health != nil {
		s.route(mux, "GET /ready", s.opts.Health.ReadinessHandler())
	} else {
		s.route(mux, "GET /ready", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, r, http.StatusOK, map[string]string{"status": health.StatusHealthy})
		})
	}
	if s.opts.Metrics != nil {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics)
	}

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)
	return handler
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, middleware.Route(pattern, s.opts.Recorder, h))
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.running = true
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	srv := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.WithoutCancel(ctx))
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded
// by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.closeOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Info("http server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
