package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hakimbdev/items-api/internal/config"
	"github.com/hakimbdev/items-api/internal/constants"
	"github.com/hakimbdev/items-api/internal/items"
	"github.com/hakimbdev/items-api/internal/stats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server holds the application state
type Server struct {
	store   *items.Store
	engine  *stats.Engine
	config  *config.Config
	log     zerolog.Logger
	version string
	limiter *RateLimiter
}

// NewServer creates a server instance. The engine is not started here;
// Run starts it and stops it on shutdown.
func NewServer(store *items.Store, engine *stats.Engine, cfg *config.Config, log zerolog.Logger, version string) *Server {
	return &Server{
		store:   store,
		engine:  engine,
		config:  cfg,
		log:     log,
		version: version,
		limiter: NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

// Handler builds the routed handler with the middleware chain applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /api/items", s.HandleListItems)
	api.HandleFunc("POST /api/items", s.HandleCreateItem)
	api.HandleFunc("GET /api/items/{id}", s.HandleGetItem)
	api.HandleFunc("GET /api/stats", s.HandleStats)
	mux.Handle("/api/", s.limiter.Middleware(api))

	// Order matters: Recovery -> RequestID -> Logger -> RequestSizeLimit -> CORS -> handlers
	return Recovery(s.log)(RequestID(Logger(s.log)(RequestSizeLimit(CORS(s.config.CORSAllowedOrigin)(mux)))))
}

// Run starts the stats watcher and the HTTP server, and shuts both down
// on SIGINT/SIGTERM or when ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if s.config.WatchEnabled {
		if err := s.engine.Start(); err != nil {
			s.log.Warn().Err(err).Msg("Stats cache will not track file changes; every request recomputes")
		}
	}
	defer func() {
		if err := s.engine.Stop(); err != nil {
			s.log.Error().Err(err).Msg("Failed to stop stats watcher")
		}
	}()

	s.limiter.StartPeriodicCleanup(ctx, constants.LimiterCleanupIntervalSeconds*time.Second)

	addr := fmt.Sprintf(":%d", s.config.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("version", s.version).Msg("Server is ready to handle requests")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a signal, a cancellation or a server error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.log.Info().Str("signal", sig.String()).Msg("Starting graceful shutdown")
	case <-ctx.Done():
		s.log.Info().Msg("Context cancelled, starting graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info().Msg("Server stopped gracefully")
	return nil
}
