// Command client issues one generation over the rinnsal push channel and
// prints the streamed text.
//
// Usage:
//
//	client --url ws://localhost:8080/v1/ws --prompt "hello" --cancel-after 1s
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jessevdk/go-flags"

	"github.com/rhuss/rinnsal/pkg/api"
)

// Options are the command line flags.
type Options struct {
	URL         string        `short:"u" long:"url" default:"ws://localhost:8080/v1/ws" description:"push channel endpoint"`
	Prompt      string        `short:"p" long:"prompt" description:"prompt to send"`
	RequestID   string        `short:"r" long:"request-id" description:"request id (generated when empty)"`
	CancelAfter time.Duration `long:"cancel-after" description:"send a cancel after this delay (0 disables)"`
	Idle        time.Duration `long:"idle" default:"5s" description:"stop after this long without a message"`
}

func main() {
	opts := &Options{}
	if _, err := flags.NewParser(opts, flags.Default).Parse(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("client failed", "error", err)
		os.Exit(1)
	}
}

// run performs one generation and writes chunk text to out. A server-side
// error message is returned as an error.
func run(ctx context.Context, opts *Options, out io.Writer) error {
	if opts.RequestID == "" {
		opts.RequestID = api.NewRequestID()
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, opts.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dialing %s: %w", opts.URL, err)
	}
	defer conn.CloseNow()

	gen := api.ClientMessage{Type: api.MessageGenerate, RequestID: opts.RequestID, Prompt: opts.Prompt}
	if err := wsjson.Write(ctx, conn, gen); err != nil {
		return fmt.Errorf("sending generate: %w", err)
	}
	slog.Debug("generate sent", "request_id", opts.RequestID)

	if opts.CancelAfter > 0 {
		t := time.AfterFunc(opts.CancelAfter, func() {
			msg := api.ClientMessage{Type: api.MessageCancel, RequestID: opts.RequestID}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				slog.Warn("sending cancel failed", "error", err)
			}
		})
		defer t.Stop()
	}

	for {
		msg, idle, err := readMessage(ctx, conn, opts.Idle)
		if idle {
			// Without a done notice, silence means completion.
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading message: %w", err)
		}
		if msg.RequestID != opts.RequestID {
			continue
		}

		switch msg.Type {
		case api.MessageChunk:
			fmt.Fprint(out, msg.Text)
		case api.MessageCancelAck:
			slog.Info("cancel acknowledged", "request_id", msg.RequestID)
		case api.MessageError:
			fmt.Fprintln(out)
			return fmt.Errorf("server error: %w", msg.Error)
		}

		if msg.IsTerminal() {
			fmt.Fprintln(out)
			slog.Info("generation finished", "request_id", msg.RequestID, "type", string(msg.Type))
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}
}

// readMessage reads one message. idle reports that the idle timeout expired
// while ctx itself is still live; the connection is unusable afterwards.
func readMessage(ctx context.Context, conn *websocket.Conn, timeout time.Duration) (msg api.ServerMessage, idle bool, err error) {
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := wsjson.Read(readCtx, conn, &msg); err != nil {
		return msg, readCtx.Err() != nil && ctx.Err() == nil, err
	}
	return msg, false, nil
}
