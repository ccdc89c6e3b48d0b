package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
)

// Handler processes one client command. Replies (chunks, notices,
// acknowledgments) go to sink; the returned error is for failures the
// transport has to report itself.
//
// A generate command blocks until its session ends, so transports that
// multiplex sessions invoke Handle for generate in its own goroutine.
type Handler interface {
	Handle(ctx context.Context, msg *api.ClientMessage, sink session.Sink) error
}

// HandlerFunc is an adapter that allows using an ordinary function as a
// Handler.
type HandlerFunc func(ctx context.Context, msg *api.ClientMessage, sink session.Sink) error

// Handle calls f(ctx, msg, sink).
func (f HandlerFunc) Handle(ctx context.Context, msg *api.ClientMessage, sink session.Sink) error {
	return f(ctx, msg, sink)
}

// NewSessionHandler returns the Handler that runs generate and cancel
// commands on m.
func NewSessionHandler(m *session.Manager) Handler {
	return HandlerFunc(func(ctx context.Context, msg *api.ClientMessage, sink session.Sink) error {
		switch msg.Type {
		case api.MessageGenerate:
			err := m.Generate(ctx, msg.RequestID, msg.Prompt, sink)
			if errors.Is(err, session.ErrConflict) {
				return api.NewConflictError("request_id",
					fmt.Sprintf("request id %q is already in use", msg.RequestID))
			}
			return err
		case api.MessageCancel:
			m.Cancel(ctx, msg.RequestID, sink)
			return nil
		default:
			return api.NewInvalidRequestError("type",
				fmt.Sprintf("unsupported message type %q", msg.Type))
		}
	})
}
