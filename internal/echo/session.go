package echo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Label is prefixed to every echoed message.
const Label = "Message text was: "

// ErrConnectionClosed is returned when the peer goes away while the session
// is waiting for a message or sending a reply.
var ErrConnectionClosed = errors.New("connection closed")

// Conn is a live text message connection that has already passed the
// handshake. Implementations wrap ErrConnectionClosed when the peer
// disconnects.
type Conn interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
}

type State int32

const (
	StateAwaitingMessage State = iota
	StateSending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingMessage:
		return "awaiting_message"
	case StateSending:
		return "sending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Format builds the reply for an inbound message.
func Format(text string) string {
	return Label + text
}

// Stats counts the traffic of one session.
type Stats struct {
	Received int64
	Sent     int64
}

// Observer is notified after each reply is sent. Optional.
type Observer func(in, out string)

type Option func(*Session)

func WithObserver(fn Observer) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// Session serves a single Conn. It is not shared between connections.
type Session struct {
	ID       string
	conn     Conn
	observer Observer

	state    atomic.Int32
	received atomic.Int64
	sent     atomic.Int64
}

func NewSession(id string, conn Conn, opts ...Option) *Session {
	s := &Session{ID: id, conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(StateAwaitingMessage))
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Stats() Stats {
	return Stats{Received: s.received.Load(), Sent: s.sent.Load()}
}

// Run echoes every inbound message until the connection terminates. Each
// received message produces exactly one reply, and the next message is not
// read before that reply has been written.
//
// The returned error always satisfies errors.Is(err, ErrConnectionClosed)
// for a peer disconnect or ctx cancellation. Other transport errors are
// returned unchanged.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(StateClosed)

	for {
		s.setState(StateAwaitingMessage)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}

		text, err := s.conn.ReadText(ctx)
		if err != nil {
			return s.closeErr(ctx, "read", err)
		}
		s.received.Add(1)

		s.setState(StateSending)
		reply := Format(text)
		if err := s.conn.WriteText(ctx, reply); err != nil {
			return s.closeErr(ctx, "write", err)
		}
		s.sent.Add(1)

		if s.observer != nil {
			s.observer(text, reply)
		}
	}
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) closeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrConnectionClosed) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, ctxErr)
	}
	return fmt.Errorf("echo %s: %w", op, err)
}
