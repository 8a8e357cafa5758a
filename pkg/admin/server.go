// Package admin provides the REST API for operating the adaptive engine:
// telemetry pushes, evaluation triggers, failure signals, statistics
// snapshots, a live decision stream and metrics exposition.
package admin

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/logging"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/metrics"
)

// DefaultAddr is the default admin listen address.
const DefaultAddr = ":4280"

// Server exposes the admin API over HTTP.
type Server struct {
	engine    *adaptive.Engine
	registry  *metrics.Registry
	collector *metrics.AdaptationCollector

	addr       string
	apiKey     string
	log        *slog.Logger
	httpServer *http.Server
	startTime  time.Time
}

// Option configures the admin server.
type Option func(*Server)

// WithAddr sets the listen address. Defaults to DefaultAddr.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAPIKey enables API key authentication. Requests must carry the key in
// the X-API-Key header; /health stays exempt so probes keep working.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger sets the operational logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates an admin server around an engine.
func New(engine *adaptive.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		registry:  metrics.NewRegistry(),
		addr:      DefaultAddr,
		log:       logging.Nop(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.collector = metrics.NewAdaptationCollector(s.registry, engine)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the admin API handler. Exposed separately so tests can
// drive the API through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /scores", s.handleScores)
	mux.HandleFunc("GET /protocols", s.handleProtocols)
	mux.HandleFunc("PUT /conditions", s.handlePutConditions)
	mux.HandleFunc("PUT /performance/{name}", s.handlePutPerformance)
	mux.HandleFunc("PUT /support", s.handlePutSupport)
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /failures", s.handleFailure)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return s.requireAPIKey(mux)
}

// Start begins serving in the background. It returns once the listener is
// bound so callers can fail fast on address conflicts.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.log.Info("admin API listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("admin API server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server and drops the metrics subscription.
func (s *Server) Shutdown(ctx context.Context) error {
	s.collector.Close()
	return s.httpServer.Shutdown(ctx)
}
