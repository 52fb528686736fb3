package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var url string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:          "wsecho-client",
		Short:        "Send stdin lines to the echo endpoint and print the replies",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			dialer := websocket.Dialer{HandshakeTimeout: timeout}
			conn, _, err := dialer.DialContext(ctx, url, nil)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", url, err)
			}
			defer conn.Close()

			return run(ctx, conn, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://localhost:8000/ws", "echo endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "handshake timeout")
	return cmd
}

// run writes every input line as a text message and prints every reply.
// Once the input is exhausted it waits for the outstanding replies and
// closes the connection normally. Cancelling ctx stops it even while the
// input is idle.
func run(ctx context.Context, conn *websocket.Conn, in io.Reader, out io.Writer) error {
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	sent := make(chan struct{}, 1024)

	// a blocked read on in cannot be interrupted, so the scanner lives
	// outside the group and is abandoned on cancellation
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- ctx.Err()
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	g.Go(func() error {
		defer close(sent)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					return <-scanErr
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
					return fmt.Errorf("send: %w", err)
				}
				select {
				case sent <- struct{}{}:
				case <-ctx.Done():
					return ctx.Err()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for range sent {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return fmt.Errorf("receive: %w", err)
			}
			fmt.Fprintln(out, string(payload))
		}
		return conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
	})

	// unblock a pending read when interrupted
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	err := g.Wait()
	if parent.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
