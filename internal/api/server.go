package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/devicesim/esp32-rest-sim/internal/device"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultRebootDelay leaves time for the reboot response to reach the client.
const defaultRebootDelay = time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Simulator   *device.Simulator
	History     device.History // optional: history routes answer 503 without it
	RebootDelay time.Duration
	Version     string

	// HealthChecks are run by GET /api/health, keyed by service name.
	HealthChecks map[string]HealthChecker
}

// HealthChecker is satisfied by the database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP API server of the simulated device.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	sim         *device.Simulator
	history     device.History
	rebootDelay time.Duration
	version     string
	checks      map[string]HealthChecker
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Simulator == nil {
		return nil, fmt.Errorf("simulator is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		sim:         deps.Simulator,
		history:     deps.History,
		rebootDelay: deps.RebootDelay,
		version:     deps.Version,
		checks:      deps.HealthChecks,
	}
	if s.rebootDelay <= 0 {
		s.rebootDelay = defaultRebootDelay
	}

	// The hub streams every simulator event to websocket clients.
	s.hub = NewHub(s.wsCfg, s.logger)
	s.sim.Subscribe(s.hub.HandleEvent)

	return s, nil
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router. Start uses it; tests can serve it
// through httptest without opening a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It runs the WebSocket hub and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then stops the WebSocket hub.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}

	s.logger.Info("API server stopped")
	return nil
}
