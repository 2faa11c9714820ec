package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/perimeterhq/corsgate/internal/config"
	"github.com/perimeterhq/corsgate/internal/handlers"
	"github.com/perimeterhq/corsgate/internal/middleware"
	"github.com/perimeterhq/corsgate/internal/policy"
	"github.com/perimeterhq/corsgate/internal/proxy"
	"github.com/perimeterhq/corsgate/internal/redis"
)

// Server represents the HTTP gateway.
type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
}

// New creates the gateway with all routes and middleware. The Redis
// client may be nil when no policy needs it.
func New(
	logger logrus.FieldLogger,
	cfg *config.Config,
	redisClient redis.Client,
) (*Server, error) {
	selector, err := policy.NewSelector(
		logger.WithField("component", "cors"),
		redisClient,
		cfg.CORS.Policies,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build CORS policies: %w", err)
	}

	logger.WithField("policies", len(cfg.CORS.Policies)).Info("Compiled CORS policies")

	mux := http.NewServeMux()

	// Health endpoint (no middleware needed for simple health check)
	mux.HandleFunc("GET /health", handlers.Health())
	logger.WithField("route", "GET /health").Info("Registered route")

	// Metrics endpoint (Prometheus format)
	mux.Handle("GET /metrics", promhttp.Handler())
	logger.WithField("route", "GET /metrics").Info("Registered route")

	// The downstream application: the configured upstream, or the
	// built-in echo handler when none is set.
	var downstream http.Handler

	if cfg.Upstream.URL != "" {
		proxyHandler, err := proxy.New(logger, cfg.Upstream)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy: %w", err)
		}

		downstream = proxyHandler

		logger.WithField("upstream", proxyHandler.Target()).Info("Proxying to upstream")
	} else {
		downstream = handlers.Echo()

		logger.Info("No upstream configured, using built-in echo handler")
	}

	mux.Handle("/", downstream)

	// Middleware chain, innermost first: CORS negotiation runs closest
	// to the downstream handler so that short-circuited preflights are
	// still logged and counted by the outer layers.
	handler := middleware.CORS(logger, selector)(mux)
	handler = middleware.Metrics()(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.Recovery(logger)(handler)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

// Start starts the HTTP server (blocking call).
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	return s.httpServer.Shutdown(ctx)
}
