package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tyrowin/echorelay/internal/config"
	"github.com/Tyrowin/echorelay/internal/logging"
	"github.com/Tyrowin/echorelay/internal/metrics"
	"github.com/Tyrowin/echorelay/internal/registry"
)

// Server accepts relay connections, runs one session per connection, and
// fans every received message out to all registered connections.
type Server struct {
	cfg      *config.Config
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *metrics.RelayMetrics
	gatherer prometheus.Gatherer
	clock    clockwork.Clock
	origins  originPolicy
	upgrader websocket.Upgrader

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	closed   bool
	slots    int
	sessions sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the relay instruments and the gatherer served on /metrics.
// A nil gatherer leaves /metrics unrouted.
func WithMetrics(m *metrics.RelayMetrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
		s.gatherer = g
	}
}

// WithClock sets the clock driving keepalive pings.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a Server with an empty registry. cfg is sanitized in place.
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Sanitize()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		registry: registry.New(),
		logger:   logging.Discard(),
		metrics:  metrics.NewRelayMetrics(nil),
		clock:    clockwork.NewRealClock(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.origins = newOriginPolicy(cfg.AllowedOrigins, s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// ClientCount returns the number of registered connections.
func (s *Server) ClientCount() int {
	return s.registry.Len()
}

// reserveSlot claims capacity for one session before its upgrade. Slots are
// held from the handshake until the session has unregistered, so concurrent
// upgrades can never exceed MaxConnections. Every successful call must be
// paired with serve or releaseSlot.
func (s *Server) reserveSlot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if limit := s.cfg.MaxConnections; limit > 0 && s.slots >= limit {
		return ErrServerFull
	}
	s.slots++
	s.sessions.Add(1)
	return nil
}

func (s *Server) releaseSlot() {
	s.mu.Lock()
	s.slots--
	s.mu.Unlock()
	s.sessions.Done()
}

// serve runs the session for an upgraded connection on a reserved slot.
func (s *Server) serve(conn *Conn) {
	go func() {
		defer s.releaseSlot()
		s.newSession(conn).run(s.ctx)
	}()
}

func (s *Server) register(conn *Conn, logger *slog.Logger) {
	s.registry.Add(conn)
	count := s.registry.Len()
	s.metrics.ActiveConnections.Set(float64(count))
	logger.Info("Client registered", "total_clients", count)
}

func (s *Server) unregister(conn *Conn, logger *slog.Logger, reason string) {
	s.registry.Remove(conn)
	count := s.registry.Len()
	s.metrics.ActiveConnections.Set(float64(count))
	s.metrics.Disconnects.WithLabelValues(reason).Inc()
	conn.Close()
	logger.Info("Client unregistered", "reason", reason, "total_clients", count)
}

// Shutdown stops accepting sessions, closes every open connection with a
// going-away frame, and waits for all sessions to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Initiating relay shutdown...")

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Relay shutdown completed successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Relay shutdown timeout reached, some sessions may still be running")
		return ctx.Err()
	}
}
