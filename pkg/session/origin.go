package session

import "context"

// Origin describes where a session came from, for records and logs.
type Origin struct {
	Transport    string // "ws", "sse", or "http"
	ConnectionID string
}

type originKeyType struct{}

var originKey = originKeyType{}

// ContextWithOrigin returns a context carrying o.
func ContextWithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey, o)
}

// OriginFromContext returns the origin stored in ctx. The transport
// defaults to "unknown" when none is set.
func OriginFromContext(ctx context.Context) Origin {
	if o, ok := ctx.Value(originKey).(Origin); ok {
		if o.Transport == "" {
			o.Transport = "unknown"
		}
		return o
	}
	return Origin{Transport: "unknown"}
}
