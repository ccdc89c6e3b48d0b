// Package api defines the wire types for the rinnsal streaming service.
//
// This package provides the messages exchanged over the push channel
// (generate and cancel requests, chunk and notice messages), the chunk
// payload used by the one-shot SSE stream, history records, error types,
// session state machine validation, and ID generation.
//
// The package performs no I/O. All types serialize to JSON.
//
// Core types:
//   - [ClientMessage]: inbound request (generate or cancel)
//   - [ServerMessage]: outbound message (chunk, cancelled, cancel_ack, done, error)
//   - [Chunk]: the stable chunk payload, {"text": ...}
//   - [GenerationRecord]: summary of one finished generation session
//   - [APIError]: structured error with type, code, param, and message
package api
