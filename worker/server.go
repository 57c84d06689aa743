package worker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/repocache"
	"github.com/jmgilman/reposandbox/tools"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MaxBodyBytes limits request bodies.
	MaxBodyBytes = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// Server is the worker's HTTP front end.
type Server struct {
	cache   *repocache.Cache
	tools   *tools.Dispatcher
	secret  string
	metrics *Metrics
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithSecret requires "Authorization: Bearer <secret>" on every endpoint
// except /health.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = secret }
}

// WithMetrics sets the collectors the server records into.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server backed by cache and dispatcher.
func New(cache *repocache.Cache, dispatcher *tools.Dispatcher, opts ...Option) *Server {
	s := &Server{
		cache: cache,
		tools: dispatcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.handler = s.routes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the collectors the server records into.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	public := func(route string, h http.HandlerFunc) http.HandlerFunc {
		return s.observe(route, h)
	}
	private := func(route string, h http.HandlerFunc) http.HandlerFunc {
		return s.observe(route, s.authenticate(h))
	}

	mux.HandleFunc("GET /health", public("/health", s.handleHealth))
	mux.HandleFunc("POST /clone", private("/clone", s.handleClone))
	mux.HandleFunc("POST /tool", private("/tool", s.handleTool))
	mux.HandleFunc("POST /reset", private("/reset", s.handleReset))
	mux.Handle("GET /metrics", private("/metrics",
		promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP))

	return mux
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return platformerrors.Wrapf(err, platformerrors.CodeUnavailable, "failed to listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		clog.InfoContextf(ctx, "Worker listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return platformerrors.Wrap(err, platformerrors.CodeUnavailable, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	clog.InfoContextf(ctx, "Shutting down worker")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "shutdown failed")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return platformerrors.Wrap(err, platformerrors.CodeUnavailable, "server stopped")
	}
	return nil
}
