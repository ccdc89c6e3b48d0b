// Package session runs cancellable generation sessions.
//
// A session pairs a client-supplied request id with a [Handle] and a [Sink].
// The [Registry] maps request ids to handles so that a cancel call arriving
// on any connection can stop a generation running on another one. The
// [Manager] implements the generate, cancel, and one-shot stream operations
// on top of a textsource.Source.
//
// Cancellation is cooperative: signalling a handle cancels its context, and
// the source observes that at the next chunk boundary. A cancelled session
// is not an error; it ends with a single cancelled notice.
package session
