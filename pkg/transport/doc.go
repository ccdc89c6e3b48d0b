// Package transport defines the command handler contract and middleware
// chain shared by rinnsal's client-facing transports.
//
// Transports (the WebSocket push channel in pkg/transport/ws and the HTTP
// adapter in pkg/transport/http) decode client input into an
// api.ClientMessage and dispatch it to a Handler together with a
// session.Sink for replies. The handler built by NewSessionHandler routes
// generate and cancel commands to a session.Manager.
//
// # Middleware
//
// The middleware chain wraps Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, message validation and structured
// logging via log/slog.
//
// # Errors
//
// A handler reports client-visible failures as *api.APIError. The HTTP
// adapter writes them as JSON with a status derived from the error type;
// the push channel sends them as error messages.
package transport
