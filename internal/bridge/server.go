package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/cgd1/internal/eventbus"
	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/metrics"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/version"
)

const (
	// ServiceType is the mDNS service type the bridge registers
	ServiceType = "_cgd1._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	shutdownTimeout = 5 * time.Second
)

// Source is the device state the bridge reports to new clients
type Source interface {
	Address() string
	IsConnected() bool
	Configuration() *protocol.Configuration
	Alarms() []protocol.Alarm
}

// Config holds the bridge configuration
type Config struct {
	Listen    string // HTTP listen address, e.g. ":8765"
	Advertise bool   // Register ServiceType over mDNS
	Instance  string // mDNS instance name (defaults to "cgd1-<host>")

	Bus      *eventbus.Bus
	Source   Source
	Registry *prometheus.Registry // /metrics is not served when nil
}

// Server is the websocket event bridge
type Server struct {
	config   Config
	hub      *Hub
	upgrader websocket.Upgrader
	sub      *eventbus.Subscription
}

// New creates a bridge and subscribes it to the bus
func New(cfg Config) (*Server, error) {
	if cfg.Bus == nil {
		return nil, errors.New("bridge: event bus is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("bridge: device source is required")
	}

	s := &Server{
		config: cfg,
		hub:    NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.sub = cfg.Bus.Subscribe(func(ev eventbus.Event) {
		s.hub.Broadcast(EventMessage(ev))
	})
	return s, nil
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWebSocket)
	mux.HandleFunc("/healthz", s.serveHealth)
	if s.config.Registry != nil {
		mux.Handle("/metrics", metrics.Handler(s.config.Registry))
	}
	return mux
}

// Clients returns the number of attached websocket clients
func (s *Server) Clients() int {
	return s.hub.Clients()
}

func (s *Server) hello() Message {
	src := s.config.Source
	up := src.IsConnected()
	return Message{
		Type:          TypeHello,
		At:            time.Now(),
		Address:       src.Address(),
		Connected:     &up,
		Configuration: NewConfigurationView(src.Configuration()),
		Alarms:        NewAlarmViews(src.Alarms()),
	}
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	s.hub.attach(conn, s.hello())
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	state := "disconnected"
	if s.config.Source.IsConnected() {
		state = "connected"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "ok %s\n", state)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Bridge listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("advertise", s.config.Advertise),
	)

	if s.config.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		zc, err := s.advertise(port)
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer zc.Shutdown()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case err := <-errChan:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Info("Shutting down bridge...")
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Bridge shutdown timeout, forcing close", zap.Error(err))
		return srv.Close()
	}
	return nil
}

func (s *Server) advertise(port int) (*zeroconf.Server, error) {
	instance := s.config.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = "cgd1-" + host
	}
	text := []string{
		"address=" + s.config.Source.Address(),
		"path=/ws",
		"version=" + version.Version,
	}

	zc, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Bridge advertised over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return zc, nil
}

// Close detaches from the bus and disconnects all clients
func (s *Server) Close() {
	s.sub.Unsubscribe()
	s.hub.Close()
}
