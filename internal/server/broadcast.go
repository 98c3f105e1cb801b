package server

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Tyrowin/echorelay/internal/metrics"
	"github.com/Tyrowin/echorelay/internal/registry"
)

const echoPrefix = "Echo: "

// FormatEcho returns the outbound frame content for an inbound message.
func FormatEcho(message string) string {
	return echoPrefix + message
}

// SendResult is the outcome of delivering one fan-out to one recipient.
// Err is nil on success and wraps ErrConnectionClosed when the recipient was
// skipped because it was no longer open.
type SendResult struct {
	HandleID uuid.UUID
	Err      error
}

// Broadcast delivers FormatEcho(message) to every open handle in a snapshot
// of the registry, the sender included. It never holds the registry lock
// while sending.
func (s *Server) Broadcast(message string) []SendResult {
	return fanOut(s.registry.Snapshot(), FormatEcho(message))
}

func fanOut(handles []registry.Handle, payload string) []SendResult {
	results := make([]SendResult, 0, len(handles))
	for _, h := range handles {
		results = append(results, SendResult{HandleID: h.ID(), Err: safeSend(h, payload)})
	}
	return results
}

// safeSend isolates one recipient: a closed handle, a write error, or a
// panic inside Send all come back as an error.
func safeSend(h registry.Handle, payload string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	if !h.IsOpen() {
		return ErrConnectionClosed
	}
	return h.Send(payload)
}

// recordDeliveries logs and counts per-recipient outcomes of one fan-out.
func (s *Server) recordDeliveries(logger *slog.Logger, results []SendResult) {
	for _, result := range results {
		switch {
		case result.Err == nil:
			s.metrics.Deliveries.WithLabelValues(metrics.ResultDelivered).Inc()
		case errors.Is(result.Err, ErrConnectionClosed):
			s.metrics.Deliveries.WithLabelValues(metrics.ResultSkipped).Inc()
			logger.Debug("Skipped closed recipient", "recipient_id", result.HandleID, "error", result.Err)
		default:
			s.metrics.Deliveries.WithLabelValues(metrics.ResultFailed).Inc()
			logger.Warn("Broadcast send failed", "recipient_id", result.HandleID, "error", result.Err)
		}
	}
}
