// Package ws implements the push-channel transport over WebSocket.
//
// Each connection carries JSON text frames in both directions. Clients send
// generate and cancel commands; the server pushes chunk, cancelled,
// cancel_ack, done and error messages tagged with the request id. Every
// generate runs in its own goroutine, cancel runs inline on the read loop,
// and all writes on a connection are serialized so the messages of one
// request id arrive in order.
//
// Closing the connection cancels every generation it started. The handler
// returns only after they have all ended.
package ws
