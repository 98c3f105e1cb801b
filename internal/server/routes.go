package server

import (
	"net/http"

	"github.com/Tyrowin/echorelay/internal/metrics"
)

// Handler returns an HTTP ServeMux with all relay routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.RootHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	if s.gatherer != nil {
		mux.Handle("/metrics", metrics.Handler(s.gatherer))
	}
	return mux
}
