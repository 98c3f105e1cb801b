package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

const healthMessage = "Echo relay is running!"

// WebSocketHandler upgrades GET requests to relay connections. The request
// is refused with 503 when the server is shutting down or at capacity.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	if err := s.reserveSlot(); err != nil {
		s.metrics.RejectedUpgrades.Inc()
		if errors.Is(err, ErrServerFull) {
			s.logger.Warn("Connection limit reached; refusing upgrade",
				"remote_addr", r.RemoteAddr, "limit", s.cfg.MaxConnections)
			http.Error(w, "Too many connections.", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Server is shutting down.", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.releaseSlot()
		s.logger.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	s.serve(newConn(ws, r.RemoteAddr, s.cfg))
}

// RootHandler serves relay connections on any path carrying a WebSocket
// upgrade and the health check otherwise.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.WebSocketHandler(w, r)
		return
	}
	HealthHandler(w, r)
}

// HealthHandler responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, healthMessage)
}
