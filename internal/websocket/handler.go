package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"wsecho/internal/echo"
	"wsecho/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Options struct {
	ReadLimit int64
	PongWait  time.Duration
	WriteWait time.Duration
	// AllowedOrigins lists browser origins permitted to connect. Empty or
	// "*" allows every origin.
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	return o
}

type Handler struct {
	upgrader websocket.Upgrader
	opts     Options
	hub      *Hub
	logger   *WebSocketLogger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewHandler(hub *Hub, opts Options, logger *WebSocketLogger) *Handler {
	if logger == nil {
		logger = NewWebSocketLogger(nil)
	}
	h := &Handler{
		opts:   opts.withDefaults(),
		hub:    hub,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Connect upgrades the request and runs the echo session until the peer
// disconnects. Headers already set by middleware are carried on the 101
// response.
func (h *Handler) Connect(c *gin.Context) {
	if !h.begin() {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("server shutting down", httpdto.CodeUnavailable))
		return
	}
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, upgradeHeader(c.Writer.Header()))
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Error("upgrade_failed", "", err, zap.String("remote_addr", c.ClientIP()))
		return
	}

	connID := uuid.New().String()
	h.Serve(context.WithoutCancel(c.Request.Context()), connID, conn, c.ClientIP())
}

// begin reserves a slot for a new session unless Shutdown has started.
func (h *Handler) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.wg.Add(1)
	return true
}

// upgradeHeader copies the pending response headers, minus the handshake
// headers the upgrader sets itself.
func upgradeHeader(pending http.Header) http.Header {
	header := pending.Clone()
	for key := range header {
		if strings.HasPrefix(http.CanonicalHeaderKey(key), "Sec-Websocket-") {
			delete(header, key)
		}
	}
	return header
}

// Serve runs one echo session over an accepted connection.
func (h *Handler) Serve(ctx context.Context, connID string, ws *websocket.Conn, remoteAddr string) {
	conn := newConn(connID, ws, h.opts, h.logger)
	if !h.hub.Register(conn) {
		conn.Close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unregister(conn)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go conn.keepalive(done)

	h.logger.Info("connection_opened", connID, zap.String("remote_addr", remoteAddr))

	session := echo.NewSession(connID, conn, echo.WithObserver(func(in, _ string) {
		h.logger.Debug("message_echoed", connID, zap.Int("size", len(in)))
	}))
	start := time.Now()
	err := session.Run(ctx)

	stats := session.Stats()
	fields := []zap.Field{
		zap.Int64("received", stats.Received),
		zap.Int64("sent", stats.Sent),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil && !errors.Is(err, echo.ErrConnectionClosed) {
		h.logger.Error("session_failed", connID, err, fields...)
		conn.Close(websocket.CloseInternalServerErr, "transport error")
		return
	}
	conn.Close(websocket.CloseNormalClosure, "")
	h.logger.Info("connection_closed", connID, fields...)
}

// Shutdown closes every live connection and waits for the sessions to
// return or for ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	h.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// non-browser clients do not send an Origin header
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	h.logger.Warn("origin_blocked", "", zap.String("origin", origin), zap.String("path", r.URL.Path))
	return false
}
