package session

import (
	"context"

	"github.com/rhuss/rinnsal/pkg/api"
)

// Sink delivers messages to the caller that owns a session. Transports
// serialize Send calls per connection so messages arrive in call order.
type Sink interface {
	Send(ctx context.Context, msg api.ServerMessage) error
}

// SinkFunc adapts an ordinary function to a Sink.
type SinkFunc func(ctx context.Context, msg api.ServerMessage) error

// Send calls f(ctx, msg).
func (f SinkFunc) Send(ctx context.Context, msg api.ServerMessage) error {
	return f(ctx, msg)
}
