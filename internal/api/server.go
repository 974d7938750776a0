package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/bridge"
	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/logging"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Gateway reads lights from the hub. *tradfri.Client satisfies it.
type Gateway interface {
	Devices(ctx context.Context, ids []int) ([]gateway.Device, error)
	Groups(ctx context.Context) ([]gateway.Group, error)
	Device(ctx context.Context, id int) (gateway.Device, error)
	Group(ctx context.Context, id int) (gateway.Group, error)
	All(ctx context.Context) ([]gateway.GroupWithDevices, error)
}

// Bridge is the write path and the live state feed. *bridge.Bridge
// satisfies it.
type Bridge interface {
	Apply(ctx context.Context, kind gateway.Kind, id int, props gateway.Properties) error
	Metrics() bridge.Metrics
	CachedDevices() []gateway.Device
	CachedGroups() []gateway.Group
	OnStateChange(fn func(bridge.StateMessage))
}

// Connectivity reports whether the MQTT client is connected.
type Connectivity interface {
	IsConnected() bool
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Gateway Gateway
	Bridge  Bridge

	// MQTT is optional and only feeds /health.
	MQTT    Connectivity
	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	gateway   Gateway
	bridge    Bridge
	mqtt      Connectivity
	version   string
	startTime time.Time

	server   *http.Server
	listener net.Listener
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates a server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		gateway:   deps.Gateway,
		bridge:    deps.Bridge,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
	}, nil
}

// Start binds the listener, relays bridge state changes to WebSocket
// clients and serves in the background until Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.bridge.OnStateChange(func(msg bridge.StateMessage) {
		s.hub.Broadcast(ChannelState, msg)
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr is the bound listen address, useful when Port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops accepting requests, disconnects WebSocket clients and waits
// for in-flight requests.
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

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
