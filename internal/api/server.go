package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/sporehut/sporehut-core/internal/audit"
	"github.com/sporehut/sporehut-core/internal/automation"
	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/config"
	"github.com/sporehut/sporehut-core/internal/infrastructure/logging"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceClient is the part of controller.Client the server calls.
type DeviceClient interface {
	GetDeviceConfigs(ctx context.Context) ([]device.Record, error)
	Toggle(ctx context.Context, id string) (device.Record, error)
	SetState(ctx context.Context, id string, state device.State) (device.Record, error)
}

// TriggerStatus reports automation trigger state.
type TriggerStatus interface {
	Status() []automation.Status
}

// EnvironmentSource reports the most recent sensor reading.
type EnvironmentSource interface {
	Name() string
	Latest() (hal.Reading, bool)
}

// HealthChecker is implemented by database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps is what the API server talks to. Client and Logger are required;
// the rest switch their endpoints off when nil.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Client      DeviceClient
	SiteName    string
	Audit       audit.Repository         // optional
	Triggers    TriggerStatus            // optional
	Environment EnvironmentSource        // optional
	Metrics     *metrics.Metrics         // optional
	Checks      map[string]HealthChecker // optional, reported by /api/v1/health
	Hub         *Hub                     // optional; created by Start if nil
	Version     string
}

// Server is the HTTP API server.
//
// It is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	client      DeviceClient
	siteName    string
	auditRepo   audit.Repository
	triggers    TriggerStatus
	environment EnvironmentSource
	metrics     *metrics.Metrics
	checks      map[string]HealthChecker
	version     string
	templates   *template.Template
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc

	// lastSnapshot is re-rendered by the HTML view when a command fails.
	snapshotMu   sync.RWMutex
	lastSnapshot []device.Record
}

// New validates deps and builds the router. Nothing listens until Start.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("device client is required")
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	siteName := deps.SiteName
	if siteName == "" {
		siteName = "SporeHut System"
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		client:      deps.Client,
		siteName:    siteName,
		auditRepo:   deps.Audit,
		triggers:    deps.Triggers,
		environment: deps.Environment,
		metrics:     deps.Metrics,
		checks:      deps.Checks,
		version:     deps.Version,
		templates:   tmpl,
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub. It is nil until Start when none was
// injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router without starting a listener.
func (s *Server) Handler() http.Handler {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: If the listen address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops accepting connections and waits up to
// gracefulShutdownTimeout for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
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

func (s *Server) rememberSnapshot(devices []device.Record) {
	s.snapshotMu.Lock()
	s.lastSnapshot = devices
	s.snapshotMu.Unlock()
}

func (s *Server) snapshot() []device.Record {
	s.snapshotMu.RLock()
	defer s.snapshotMu.RUnlock()
	return s.lastSnapshot
}
