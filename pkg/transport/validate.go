package transport

import (
	"context"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
)

// Validate returns middleware that rejects malformed commands before they
// reach the handler.
func Validate() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, msg *api.ClientMessage, sink session.Sink) error {
			if apiErr := api.ValidateClientMessage(msg); apiErr != nil {
				return apiErr
			}
			return next.Handle(ctx, msg, sink)
		})
	}
}
