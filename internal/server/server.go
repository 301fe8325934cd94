// Package server is the read-only event feed: a health endpoint, instance
// index lookups and a websocket stream of each world instance's events.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/game/world"
)

// IndexReader resolves the index of a world instance.
type IndexReader interface {
	Index(ctx context.Context, instance models.InstanceID) (*world.Index, error)
}

// Config holds server configuration
type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	MaxClients int    `yaml:"max_clients" env:"MAX_CLIENTS"`
	// Token, when set, is required from every client.
	Token string `yaml:"token" env:"TOKEN"`
	// AllowedOrigins limits websocket origins; empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	PingInterval      time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// ClientBuffer is how many events may queue for one client before it is dropped.
	ClientBuffer int `yaml:"client_buffer" env:"CLIENT_BUFFER"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8080",
		MaxClients:        10_000,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		ClientBuffer:      256,
	}
}

// Server streams domain events to websocket clients
type Server struct {
	config  Config
	bus     bus.EventBus
	indexes IndexReader
	auth    tokenAuth
	logger  log.Log

	httpServer *http.Server
	listener   net.Listener

	rooms       map[models.InstanceID]*Room
	mu          sync.Mutex
	clientCount atomic.Int64

	running atomic.Bool
	closed  atomic.Bool
}

// NewServer creates a new event feed server
func NewServer(config Config, b bus.EventBus, indexes IndexReader, logger log.Log) *Server {
	defaults := DefaultServerConfig()
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = defaults.ClientBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		config:  config,
		bus:     b,
		indexes: indexes,
		auth:    tokenAuth{token: config.Token},
		logger:  logger.With(log.String("component", "server")),
		rooms:   make(map[models.InstanceID]*Room),
	}
	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_clients", config.MaxClients),
		log.Bool("auth", s.auth.enabled()))
	return s
}

// Start starts listening; requests are served in the background.
func (s *Server) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.Error(err))
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped unexpectedly", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop disconnects every client and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping server")

	s.closeRooms()
	err := s.httpServer.Shutdown(ctx)

	s.logger.Info("Server stopped")
	return err
}

// Close stops the server if needed; it cannot be started again.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.running.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(ctx)
	}
	return nil
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil && !errors.Is(err, ErrServerNotRunning) {
		return err
	}
	return nil
}

// Stats contains server statistics
type Stats struct {
	Clients int64       `json:"clients"`
	Rooms   int         `json:"rooms"`
	Running bool        `json:"running"`
	Bus     bus.Metrics `json:"bus"`
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	s.mu.Lock()
	rooms := len(s.rooms)
	s.mu.Unlock()
	return Stats{
		Clients: s.clientCount.Load(),
		Rooms:   rooms,
		Running: s.running.Load(),
		Bus:     s.bus.GetMetrics(),
	}
}
