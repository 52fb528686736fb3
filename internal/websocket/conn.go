package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"wsecho/internal/echo"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn adapts a gorilla connection to echo.Conn. Only the session goroutine
// reads and writes data frames; the keepalive goroutine only writes control
// frames, which gorilla allows concurrently.
type Conn struct {
	ID        string
	ws        *websocket.Conn
	pongWait  time.Duration
	writeWait time.Duration
	logger    *WebSocketLogger

	closeOnce sync.Once
}

func newConn(id string, ws *websocket.Conn, opts Options, logger *WebSocketLogger) *Conn {
	c := &Conn{
		ID:        id,
		ws:        ws,
		pongWait:  opts.PongWait,
		writeWait: opts.WriteWait,
		logger:    logger,
	}

	if opts.ReadLimit > 0 {
		ws.SetReadLimit(opts.ReadLimit)
	}
	_ = ws.SetReadDeadline(time.Now().Add(c.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	return c
}

// ReadText blocks until the next text frame arrives. Binary frames are
// dropped.
func (c *Conn) ReadText(_ context.Context) (string, error) {
	for {
		msgType, payload, err := c.ws.ReadMessage()
		if err != nil {
			return "", classify("read", err)
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))

		if msgType != websocket.TextMessage {
			c.logger.Warn("binary_frame_ignored", c.ID, zap.Int("size", len(payload)))
			continue
		}
		return string(payload), nil
	}
}

func (c *Conn) WriteText(_ context.Context, text string) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return classify("write", err)
	}
	return nil
}

// keepalive pings the peer every pingPeriod until done is closed. A missing
// pong lets the read deadline expire, which ends the session.
func (c *Conn) keepalive(done <-chan struct{}) {
	ticker := time.NewTicker(c.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.logger.Debug("ping_failed", c.ID, zap.Error(err))
				return
			}
		}
	}
}

func (c *Conn) pingPeriod() time.Duration {
	return (c.pongWait * 9) / 10
}

// Close sends a close frame with the given code and releases the socket.
// Safe to call more than once.
func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(c.writeWait),
		)
		_ = c.ws.Close()
	})
}

// classify maps transport errors that mean the peer is gone to
// echo.ErrConnectionClosed.
func classify(op string, err error) error {
	var closeErr *websocket.CloseError
	var netErr net.Error
	switch {
	case errors.As(err, &closeErr),
		errors.Is(err, websocket.ErrCloseSent),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return fmt.Errorf("%s: %w: %w", op, echo.ErrConnectionClosed, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s timeout: %w: %w", op, echo.ErrConnectionClosed, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
