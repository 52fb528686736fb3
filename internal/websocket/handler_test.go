package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"wsecho/internal/echo"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *Handler, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	h := NewHandler(hub, opts, NewWebSocketLogger(zap.NewNop()))
	engine := gin.New()
	engine.GET("/ws", h.Connect)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, h, hub
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, text string) string {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	return string(payload)
}

func TestEchoRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	conn := dial(t, srv, nil)

	assert.Equal(t, "Message text was: hello", roundTrip(t, conn, "hello"))
	assert.Equal(t, "Message text was: ", roundTrip(t, conn, ""))
}

func TestEchoPreservesOrder(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	conn := dial(t, srv, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("a")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("b")))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range []string{"Message text was: a", "Message text was: b"} {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(payload))
	}
}

func TestBinaryFramesAreIgnored(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	conn := dial(t, srv, nil)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))
	assert.Equal(t, "Message text was: after", roundTrip(t, conn, "after"))
}

func TestConnectionsAreIndependent(t *testing.T) {
	srv, _, hub := newTestServer(t, Options{})
	first := dial(t, srv, nil)
	second := dial(t, srv, nil)

	assert.Equal(t, "Message text was: one", roundTrip(t, first, "one"))
	assert.Equal(t, "Message text was: two", roundTrip(t, second, "two"))
	assert.Equal(t, 2, hub.Count())

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Message text was: still here", roundTrip(t, second, "still here"))
}

func TestOriginCheck(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:8000"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, http.Header{"Origin": {"http://LOCALHOST:8000"}})
	assert.Equal(t, "Message text was: ok", roundTrip(t, conn, "ok"))
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, h, hub := newTestServer(t, Options{})
	conn := dial(t, srv, nil)
	roundTrip(t, conn, "warmup")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
	assert.Equal(t, 0, hub.Count())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestClassify(t *testing.T) {
	closed := []error{
		&websocket.CloseError{Code: websocket.CloseNormalClosure},
		websocket.ErrCloseSent,
		io.EOF,
		io.ErrUnexpectedEOF,
		net.ErrClosed,
		fmt.Errorf("write tcp: %w", syscall.EPIPE),
		&net.OpError{Op: "read", Err: timeoutErr{}},
	}
	for _, err := range closed {
		assert.ErrorIs(t, classify("read", err), echo.ErrConnectionClosed, "%v", err)
	}

	other := errors.New("invalid utf8")
	got := classify("read", other)
	assert.ErrorIs(t, got, other)
	assert.NotErrorIs(t, got, echo.ErrConnectionClosed)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestUpgradeKeepsMiddlewareHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewHub(), Options{}, NewWebSocketLogger(zap.NewNop()))
	engine := gin.New()
	engine.GET("/ws", func(c *gin.Context) {
		c.Header("X-Request-Id", "req-1")
		c.Header("X-RateLimit-Remaining", "4")
		c.Next()
	}, h.Connect)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-Id"))
	assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "Message text was: hi", roundTrip(t, conn, "hi"))
}

func TestUpgradeHeaderDropsHandshakeKeys(t *testing.T) {
	pending := http.Header{}
	pending.Set("X-Request-Id", "abc")
	pending.Set("Sec-WebSocket-Extensions", "permessage-deflate")
	pending.Set("Sec-WebSocket-Accept", "bogus")

	header := upgradeHeader(pending)
	assert.Equal(t, "abc", header.Get("X-Request-Id"))
	assert.Empty(t, header.Get("Sec-WebSocket-Extensions"))
	assert.Empty(t, header.Get("Sec-WebSocket-Accept"))
	assert.Equal(t, "permessage-deflate", pending.Get("Sec-WebSocket-Extensions"))
}

func TestShutdownRejectsNewSessions(t *testing.T) {
	srv, h, _ := newTestServer(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHubRefusesRegistrationAfterCloseAll(t *testing.T) {
	hub := NewHub()
	hub.CloseAll()

	assert.False(t, hub.Register(&Conn{ID: "late"}))
	assert.Equal(t, 0, hub.Count())
}
