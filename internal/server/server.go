// Package server exposes the speech engine over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/aloud/internal/content"
	"github.com/dgnsrekt/aloud/internal/speech"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

// Server serves the read-aloud HTTP API.
type Server struct {
	cfg       Config
	newEngine func() *speech.Engine
	fetcher   *content.Fetcher
	player    *Player
	metrics   *Metrics
	logger    *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithEngine sets the factory used to build an engine per request.
func WithEngine(newEngine func() *speech.Engine) Option {
	return func(s *Server) {
		s.newEngine = newEngine
	}
}

// WithFetcher sets the fetcher used for url requests.
func WithFetcher(f *content.Fetcher) Option {
	return func(s *Server) {
		s.fetcher = f
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server. Without options it builds a fresh auto-selecting
// engine for every request and fetches pages with the default fetcher.
func New(cfg Config, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	cfg.AllowedOrigins = trimOrigins(cfg.AllowedOrigins)
	s := &Server{
		cfg:       cfg,
		newEngine: func() *speech.Engine { return speech.NewEngine() },
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = content.NewFetcher()
	}
	if cfg.Metrics {
		s.metrics = NewMetrics()
	}
	s.player = NewPlayer(s.logger, s.metrics)
	return s
}

// Player returns the server's playback owner.
func (s *Server) Player() *Player {
	return s.player
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /voices", s.handleVoices)
	s.route(mux, "POST /read", s.handleRead)
	s.route(mux, "POST /stop", s.handleStop)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.cors(s.logRequests(mux))
}

// route registers h under pattern and records its metrics by pattern.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

// Run serves until ctx is cancelled, then shuts down gracefully and stops
// any playback.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if _, err := s.player.Stop(); err != nil {
			s.logger.Warn("Failed to stop playback", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.observeRequest(route, rec.status, time.Since(start))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// cors answers preflight requests and tags responses for allowed origins.
func (s *Server) cors(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.cfg.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || slices.Contains(s.cfg.AllowedOrigins, origin)) {
			h := w.Header()
			if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			} else {
				h.Set("Access-Control-Allow-Headers", "Content-Type")
			}
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// trimOrigins drops empty entries from a comma separated origin list.
func trimOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
