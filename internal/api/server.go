package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/discord-mqtt-bot/internal/audit"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/config"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/logging"
	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
	"github.com/nerrad567/discord-mqtt-bot/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegistryReader is the read-only registry surface. *registry.Registry
// satisfies it.
type RegistryReader interface {
	Lookup(name string) (registry.Entry, bool)
	List() []registry.Entry
	Count() int
}

// StatsProvider exposes dispatcher counters. *relay.Dispatcher satisfies it.
type StatsProvider interface {
	Stats() relay.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry RegistryReader

	// Dispatcher is optional; /api/v1/stats reports zero counters without it.
	Dispatcher StatsProvider

	// Audit is optional; the audit endpoints answer 503 without it.
	Audit audit.Repository

	// Metrics is the Prometheus registry served at /metrics. Request
	// metrics are registered on it. Optional.
	Metrics *prometheus.Registry

	// Checks are run by /api/v1/health, keyed by component name.
	Checks map[string]HealthChecker

	Version string
}

// Server is the operator HTTP API.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	registry    RegistryReader
	dispatcher  StatsProvider
	audit       audit.Repository
	gatherer    prometheus.Gatherer
	httpMetrics *httpMetrics
	checks      map[string]HealthChecker
	version     string
	startTime   time.Time

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		audit:      deps.Audit,
		checks:     deps.Checks,
		version:    deps.Version,
		startTime:  time.Now(),
	}
	if deps.Metrics != nil {
		s.gatherer = deps.Metrics
		s.httpMetrics = newHTTPMetrics(deps.Metrics)
	}

	return s, nil
}

// Start binds the listener and serves in a background goroutine.
// Binding happens synchronously so a port conflict is reported here.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s == nil || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
