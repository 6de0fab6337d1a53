// Package httpapi is the portal-facing HTTP surface: a chi router over the
// chat service and the LLM orchestrator.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cpsu-health/clinicai/internal/adapter/inbound/httpapi/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	APIKey            string
	RequestsPerMinute int
	TrustProxy        bool
	MaxBodyBytes      int64
}

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

func NewServer(cfg ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		limiter: middleware.NewRateLimiter(cfg.RequestsPerMinute, cfg.TrustProxy),
		logger:  logger,
	}
}

// Routes builds the router with all middleware applied.
//
//	GET  /health
//	POST /api/chat/start | /api/chat/message | /api/chat/end | /api/chat/insights
//	POST /api/ai/validate
//	GET  /api/ai/providers | /api/ai/usage
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "clinicai-api")
	})

	r.Get("/health", s.handler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerAuth(s.cfg.APIKey))
		r.Use(middleware.BodyLimit(s.cfg.MaxBodyBytes))

		r.Route("/chat", func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/start", s.handler.StartSession)
			r.Post("/message", s.handler.SendMessage)
			r.Post("/end", s.handler.EndSession)
			r.Post("/insights", s.handler.Insights)
		})

		r.Route("/ai", func(r chi.Router) {
			r.With(s.limiter.Middleware).Post("/validate", s.handler.Validate)
			r.Get("/providers", s.handler.Providers)
			r.Get("/usage", s.handler.Usage)
		})
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go s.limiter.Run(stop)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return serve(ctx, srv, s.cfg.ShutdownTimeout, s.logger, "api")
}

// NewProbeServer serves the liveness and readiness probes on their own port.
func NewProbeServer(port int, liveness, readiness http.Handler) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/healthz", liveness)
	r.Method(http.MethodGet, "/readyz", readiness)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ServeProbes runs a probe server until ctx is cancelled.
func ServeProbes(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	return serve(ctx, srv, 5*time.Second, logger, "probe")
}

func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger, name string) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "server", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s server shutdown: %w", name, err)
		}
		logger.Info("http server stopped", "server", name)
		return nil
	case err := <-errCh:
		return err
	}
}
