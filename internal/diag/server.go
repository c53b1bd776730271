package diag

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dshills/deskkit/internal/eventstore"
	"github.com/dshills/deskkit/internal/eventstore/async"
)

// Server errors.
var (
	ErrDisabled       = errors.New("diagnostics disabled")
	ErrAlreadyStarted = errors.New("diagnostics server already started")
)

// LoopStats is the UI loop view exposed by the server.
type LoopStats struct {
	Tasks   uint64
	Stalls  uint64
	Pending int
}

// Sources are the components the server reports on. Nil sources are
// skipped.
type Sources struct {
	Store   *eventstore.Store
	Pool    *async.Pool
	Loop    func() LoopStats
	Version string
}

// Server is the diagnostics HTTP server.
type Server struct {
	addr    string
	handler http.Handler
	log     zerolog.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log.With().Str("component", "diag").Logger()
	}
}

// New creates a server for addr. It does not listen until Start.
func New(addr string, src Sources, opts ...Option) *Server {
	s := &Server{
		addr: addr,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = NewHandler(src, s.log)
	return s
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	if s.addr == "" {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv, s.ln = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("diagnostics server stopped")
		}
	}()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("diagnostics server listening")
	return nil
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server. It is a no-op if the server never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// NewHandler builds the diagnostics router for src.
func NewHandler(src Sources, log zerolog.Logger) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	requests := registerCollectors(reg, src)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests(requests))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/debug/eventstore", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, log, snapshotOf(src))
	})
	return r
}

// countRequests records one request per route pattern and status.
func countRequests(requests *prometheus.CounterVec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			requests.WithLabelValues(routePattern(r), http.StatusText(ww.Status())).Inc()
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Snapshot is the body of /debug/eventstore.
type Snapshot struct {
	Version string           `json:"version,omitempty"`
	Names   []string         `json:"names"`
	Store   eventstore.Stats `json:"store"`
	Pool    *async.Stats     `json:"pool,omitempty"`
	Loop    *LoopStats       `json:"loop,omitempty"`
}

func snapshotOf(src Sources) Snapshot {
	snap := Snapshot{Version: src.Version, Names: []string{}}
	if src.Store != nil {
		snap.Names = src.Store.Names()
		snap.Store = src.Store.Stats()
	}
	if src.Pool != nil {
		stats := src.Pool.Stats()
		snap.Pool = &stats
	}
	if src.Loop != nil {
		stats := src.Loop()
		snap.Loop = &stats
	}
	return snap
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write diagnostics response")
	}
}
