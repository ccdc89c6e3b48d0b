// Package storage holds what the history store adapters share: sentinel
// errors and list limit handling.
//
// Adapters (memory, postgres) implement the session.HistoryStore interface
// defined in pkg/session/store.go. This package does not define the
// interface itself.
package storage
