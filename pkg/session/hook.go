package session

import "context"

type registeredKeyType struct{}

var registeredKey = registeredKeyType{}

// ContextWithRegistered returns a context that makes Generate call fn as
// soon as its session is in the registry. Transports use it to process a
// following cancel only after the generate it refers to is cancellable.
// fn is not called when Generate returns before registering.
func ContextWithRegistered(ctx context.Context, fn func()) context.Context {
	return context.WithValue(ctx, registeredKey, fn)
}

func notifyRegistered(ctx context.Context) {
	if fn, ok := ctx.Value(registeredKey).(func()); ok && fn != nil {
		fn()
	}
}
