package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/knowledge"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/memory"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout prevents Slowloris-style header trickling.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum wait for the next request on
	// keep-alive connections. There is deliberately no WriteTimeout:
	// chat streams stay open for the duration of a generation.
	IdleTimeout = 120 * time.Second

	// sweepInterval is how often idle rate-limit buckets are dropped.
	sweepInterval = time.Minute
)

// ServerConfig carries the HTTP-layer knobs.
type ServerConfig struct {
	// CORSOrigins lists allowed origins; empty disables CORS handling.
	CORSOrigins []string
	// TrustProxy enables X-Forwarded-For for client identification.
	TrustProxy bool
	// RatePerSecond and RateBurst shape the per-client token bucket.
	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond float64
	RateBurst     int
	// RetrievalTopK is how many chunks the chat endpoint retrieves.
	RetrievalTopK int
}

// Server is the HTTP server for the chat service's REST API.
type Server struct {
	mux     *http.ServeMux
	cfg     ServerConfig
	logger  log.Logger
	limiter *rateLimiter

	health  *HealthHandler
	chat    *ChatHandler
	agents  *AgentHandler
	mem     *MemoryHandler
	extract *ExtractHandler
}

// NewServer creates an HTTP server with all routes registered.
// pool and searcher may be nil when retrieval is disabled.
func NewServer(
	cfg ServerConfig,
	model ChatStreamer,
	mem *memory.Store,
	registry *agent.Registry,
	searcher knowledge.Searcher,
	pool *pgxpool.Pool,
	logger log.Logger,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		cfg:     cfg,
		logger:  logger,
		health:  NewHealthHandler(pool, logger),
		chat:    NewChatHandler(model, mem, searcher, cfg.RetrievalTopK, logger),
		agents:  NewAgentHandler(registry, logger),
		mem:     NewMemoryHandler(mem, logger),
		extract: NewExtractHandler(logger),
	}
	if cfg.RatePerSecond > 0 {
		s.limiter = newRateLimiter(cfg.RatePerSecond, cfg.RateBurst, cfg.TrustProxy, logger)
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.agents.RegisterRoutes(mux)
	s.mem.RegisterRoutes(mux)
	s.extract.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → request ID → logging → CORS → rate limit → routes.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.CORSOrigins),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, s.limiter.middleware)
	}
	return chain(s.mux, middlewares...)
}

// Run starts the HTTP server and blocks until the context is
// canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		IdleTimeout:       IdleTimeout,
	}

	if s.limiter != nil {
		go func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.limiter.sweep()
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
