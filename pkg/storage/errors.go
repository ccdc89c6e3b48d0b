package storage

import (
	"errors"

	"github.com/rhuss/rinnsal/pkg/api"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when no record exists for a request id.
	ErrNotFound = errors.New("generation record not found")

	// ErrInvalidRecord is returned when a record cannot be stored, for
	// example because it has no request id.
	ErrInvalidRecord = errors.New("invalid generation record")
)

// List limits shared by all adapters.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// NormalizeLimit clamps a requested list size to [1, MaxListLimit],
// mapping zero and negative values to DefaultListLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// CheckRecord validates a record before it is stored.
func CheckRecord(rec *api.GenerationRecord) error {
	if rec == nil || rec.RequestID == "" {
		return ErrInvalidRecord
	}
	return nil
}
