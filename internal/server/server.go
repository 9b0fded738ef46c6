package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"pdfcollate/internal/merge"
	"pdfcollate/internal/store"
)

// BuildInfo identifies the running binary in health output and logs.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries everything the server needs. The store is injected so
// tests can run against an isolated temp directory.
type Config struct {
	Addr  string // e.g. ":8080"
	Build BuildInfo
	Store store.Store

	MaxFileBytes int64         // per-file upload ceiling, default 50MB
	MaxFiles     int           // max uploads per merge request, default 50
	MergeWorkers int           // concurrent input preprocessing, default 4
	OutputGrace  time.Duration // delay before the merged output is deleted, default 1m
	RateLimit    int           // merge requests per minute per IP, 0 disables
}

type Server struct {
	httpServer *http.Server
	cfg        Config
	store      store.Store
	engine     *merge.Engine
	metrics    *metrics
}

func New(cfg Config) *Server {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 50 << 20
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 50
	}
	if cfg.MergeWorkers <= 0 {
		cfg.MergeWorkers = 4
	}
	if cfg.OutputGrace <= 0 {
		cfg.OutputGrace = time.Minute
	}

	s := &Server{
		cfg:     cfg,
		store:   cfg.Store,
		engine:  merge.NewEngine(cfg.Store, cfg.MergeWorkers),
		metrics: newMetrics(),
	}

	mux := http.NewServeMux()
	mux.Handle("/", staticHandler())

	var mergeH http.Handler = http.HandlerFunc(s.handleMerge)
	if cfg.RateLimit > 0 {
		mergeH = newRateLimiter(cfg.RateLimit, time.Minute).middleware(mergeH)
	}
	mux.Handle("/api/merge", mergeH)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/livez", s.handleLive)
	mux.Handle("/metrics", s.metrics.httpHandler())

	// Wrap middleware: requestID -> logging -> mux
	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the full middleware-wrapped handler for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
