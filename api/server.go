package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/internal/querylog"
	"github.com/theoremus-urban-solutions/journey-planner/realtime"
	"github.com/theoremus-urban-solutions/journey-planner/routing"
)

// QueryLogger records answered plan requests.
type QueryLogger interface {
	Record(ctx context.Context, e querylog.Entry) error
}

// Server serves the planner API.
type Server struct {
	router  *routing.Router
	memo    *cache.Cache
	memoTTL time.Duration
	queries QueryLogger
	started time.Time
	now     func() time.Time
	srv     *http.Server
}

// NewServer creates a server for r. queries may be nil; a zero response TTL turns
// the memo off.
func NewServer(cfg config.ServerConfig, r *routing.Router, queries QueryLogger) *Server {
	ttl := time.Duration(cfg.ResponseCacheTTLSeconds) * time.Second
	s := &Server{
		router:  r,
		memo:    cache.New(ttl, 2*ttl),
		memoTTL: ttl,
		queries: queries,
		started: time.Now(),
		now:     time.Now,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/plan", s.handlePlan)
	return r
}

// Start listens in the background. A listener failure is fatal.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", s.srv.Addr)
}

// Shutdown stops accepting requests and waits for running ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Printf("server shut down successfully")
	return nil
}

// SetSnapshot routes new requests on snap and drops memoized responses.
func (s *Server) SetSnapshot(snap realtime.Snapshot) error {
	if err := s.router.SetSnapshot(snap); err != nil {
		return err
	}
	s.memo.Flush()
	return nil
}
