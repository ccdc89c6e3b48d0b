package session

import (
	"context"

	"github.com/rhuss/rinnsal/pkg/api"
)

// HistoryStore persists records of finished sessions. It is optional; the
// manager logs store failures and never reports them to callers.
type HistoryStore interface {
	// SaveRecord stores rec. A later record for the same request id
	// supersedes the earlier one for GetRecord.
	SaveRecord(ctx context.Context, rec *api.GenerationRecord) error

	// GetRecord returns the most recent record for requestID, or
	// storage.ErrNotFound.
	GetRecord(ctx context.Context, requestID string) (*api.GenerationRecord, error)

	// ListRecords returns up to limit records, newest first.
	ListRecords(ctx context.Context, limit int) ([]*api.GenerationRecord, error)

	// HealthCheck verifies the store is usable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
