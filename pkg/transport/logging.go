package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
)

// Logging returns middleware that emits a structured log entry for each
// command. Client errors are logged at WARN, transport faults at ERROR and
// successful commands at DEBUG (the session manager already logs every
// finished generation at INFO).
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, msg *api.ClientMessage, sink session.Sink) error {
			start := time.Now()
			origin := session.OriginFromContext(ctx)

			err := next.Handle(ctx, msg, sink)

			attrs := []slog.Attr{
				slog.String("type", string(msg.Type)),
				slog.String("request_id", msg.RequestID),
				slog.String("connection_id", origin.ConnectionID),
				slog.String("transport", origin.Transport),
				slog.Duration("duration", time.Since(start)),
			}

			var apiErr *api.APIError
			switch {
			case err == nil:
				logger.LogAttrs(ctx, slog.LevelDebug, "command handled", attrs...)
			case errors.As(err, &apiErr) && apiErr.Type != api.ErrorTypeServerError:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelWarn, "command rejected", attrs...)
			default:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "command failed", attrs...)
			}

			return err
		})
	}
}
