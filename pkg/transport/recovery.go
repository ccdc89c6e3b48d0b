package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server errors. The transport keeps serving other
// commands after a panic is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, msg *api.ClientMessage, sink session.Sink) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in handler",
						slog.String("request_id", msg.RequestID),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Handle(ctx, msg, sink)
		})
	}
}
