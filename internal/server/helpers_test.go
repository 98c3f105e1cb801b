package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/echorelay/internal/config"
)

const (
	readTimeout    = 2 * time.Second
	eventuallyWait = 2 * time.Second
	eventuallyTick = 10 * time.Millisecond
)

// startTestRelay runs a relay behind an httptest server. mutate may adjust
// the configuration before the relay is built.
func startTestRelay(t *testing.T, mutate func(*config.Config), opts ...Option) (*Server, string) {
	t.Helper()

	cfg := config.Default()
	cfg.WriteTimeout = time.Second
	if mutate != nil {
		mutate(cfg)
	}

	relay := New(cfg, opts...)
	testServer := httptest.NewServer(relay.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = relay.Shutdown(ctx)
		testServer.Close()
	})

	return relay, "ws" + strings.TrimPrefix(testServer.URL, "http")
}

// dial opens a client connection and waits until the relay has registered
// it, so that broadcasts issued afterwards are guaranteed to reach it.
func dial(t *testing.T, relay *Server, url string) *websocket.Conn {
	t.Helper()

	before := relay.ClientCount()
	conn := dialOnly(t, url, nil)
	require.Eventually(t, func() bool { return relay.ClientCount() > before },
		eventuallyWait, eventuallyTick, "relay never registered the client")
	return conn
}

func dialOnly(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialClients(t *testing.T, relay *Server, url string, n int) []*websocket.Conn {
	t.Helper()

	clients := make([]*websocket.Conn, n)
	for i := range clients {
		clients[i] = dial(t, relay, url)
	}
	return clients
}

func send(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)
	return string(data)
}

// expectNoMessage asserts that nothing arrives on conn within wait. The
// connection is unusable for reads afterwards because the deadline expired.
func expectNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %q", string(data))
}

func closeGracefully(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
	_ = conn.Close()
}

func waitForClientCount(t *testing.T, relay *Server, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return relay.ClientCount() == want },
		eventuallyWait, eventuallyTick, "client count never reached %d", want)
}

// readUntil reads frames until want arrives and returns the last frame read.
// Earlier frames, such as echoes of concurrent traffic, are discarded.
func readUntil(t *testing.T, conn *websocket.Conn, want string) string {
	t.Helper()

	for i := 0; i < 1000; i++ {
		if got := readText(t, conn); got == want {
			return got
		}
	}
	return ""
}

// lockedBuffer collects log output written from session goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
