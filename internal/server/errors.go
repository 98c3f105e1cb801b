package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrConnectionClosed marks the expected end of a connection: the peer
	// closed it, the transport dropped, or the handle was already closed.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrMessageTooLarge is returned when an inbound frame exceeds the read limit.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
	// ErrUnsupportedFrame is returned for inbound frames that are not text.
	ErrUnsupportedFrame = errors.New("unsupported frame type")
	// ErrServerClosed is returned once Shutdown has been called.
	ErrServerClosed = errors.New("relay server closed")
	// ErrServerFull is returned when every connection slot is taken.
	ErrServerFull = errors.New("relay server at connection limit")
)

// classifyReadError maps a transport read error onto the relay's sentinels.
func classifyReadError(err error) error {
	if errors.Is(err, websocket.ErrReadLimit) {
		return fmt.Errorf("%w: %w", ErrMessageTooLarge, err)
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || isExpectedCloseError(err) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	return fmt.Errorf("read: %w", err)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
