package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/echorelay/internal/metrics"
)

// session drives one connection from registration to removal.
type session struct {
	server  *Server
	conn    *Conn
	limiter *rate.Limiter
	logger  *slog.Logger
}

func (s *Server) newSession(conn *Conn) *session {
	return &session{
		server:  s,
		conn:    conn,
		limiter: newRateLimiter(s.cfg.RateLimit),
		logger:  s.logger.With("session_id", conn.ID().String(), "remote_addr", conn.Addr()),
	}
}

// run registers the connection, serves it until the receive loop ends, and
// removes it from the registry on every exit path, panics included.
func (s *session) run(ctx context.Context) {
	s.server.register(s.conn, s.logger)

	reason := metrics.ReasonError
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Session panicked", "panic", r)
		}
		s.server.unregister(s.conn, s.logger, reason)
	}()

	var background sync.WaitGroup
	defer background.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		s.conn.closeWith(websocket.CloseGoingAway, "server shutting down")
	})
	defer stop()

	if interval := s.server.cfg.PingInterval; interval > 0 {
		background.Go(func() {
			err := keepAlive(ctx, s.server.clock, interval, s.conn.Ping)
			if err != nil && ctx.Err() == nil {
				s.logger.Debug("Keepalive ping failed", "error", err)
				s.conn.Close()
			}
		})
	}

	reason = s.receiveLoop(ctx)
}

// receiveLoop returns the disconnect reason once the connection can no
// longer be read.
func (s *session) receiveLoop(ctx context.Context) string {
	for {
		message, err := s.conn.Receive()
		if err != nil {
			if errors.Is(err, ErrUnsupportedFrame) {
				s.logger.Debug("Ignoring non-text frame")
				continue
			}
			return s.readFailure(ctx, err)
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.logger.Warn("Rate limit exceeded; discarding message",
				"burst", s.server.cfg.RateLimit.Burst,
				"per_second", s.server.cfg.RateLimit.PerSecond)
			continue
		}

		s.logger.Info("Received message", "bytes", len(message))
		s.logger.Debug("Message body", "message", message)
		s.server.metrics.MessagesReceived.Inc()

		results := s.server.Broadcast(message)
		s.server.recordDeliveries(s.logger, results)
	}
}

func (s *session) readFailure(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		s.logger.Info("Client disconnected by server shutdown")
		return metrics.ReasonShutdown
	case errors.Is(err, ErrConnectionClosed):
		s.logger.Info("Client disconnected", "cause", err)
		return metrics.ReasonClosed
	case errors.Is(err, ErrMessageTooLarge):
		s.logger.Warn("Message exceeded maximum size", "max_bytes", s.server.cfg.MaxMessageSize)
		return metrics.ReasonError
	default:
		s.logger.Warn("WebSocket read failed", "error", err)
		return metrics.ReasonError
	}
}
