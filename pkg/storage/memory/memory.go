// Package memory provides an in-memory implementation of
// session.HistoryStore for tests and single-process deployments. Records
// are lost when the process restarts. Optional LRU eviction bounds memory
// usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/storage"
)

// entry holds a stored record and its metadata.
type entry struct {
	rec     api.GenerationRecord
	seq     uint64        // insertion order, breaks FinishedAt ties
	lruElem *list.Element // position in LRU list
}

// Store is an in-memory HistoryStore with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = most recently saved, back = oldest
	maxSize int        // 0 = unlimited
	seq     uint64
}

// Ensure Store implements session.HistoryStore at compile time.
var _ session.HistoryStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the oldest record is evicted when the
// limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// SaveRecord stores a copy of rec. A record for a request id already
// present replaces the earlier one and becomes the most recent entry.
func (s *Store) SaveRecord(_ context.Context, rec *api.GenerationRecord) error {
	if err := storage.CheckRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if e, ok := s.entries[rec.RequestID]; ok {
		e.rec = *rec
		e.seq = s.seq
		s.lruList.MoveToFront(e.lruElem)
		return nil
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(rec.RequestID)
	s.entries[rec.RequestID] = &entry{
		rec:     *rec,
		seq:     s.seq,
		lruElem: elem,
	}
	return nil
}

// GetRecord returns the record for requestID or storage.ErrNotFound.
func (s *Store) GetRecord(_ context.Context, requestID string) (*api.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[requestID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rec := e.rec
	return &rec, nil
}

// ListRecords returns up to limit records, most recently finished first.
func (s *Store) ListRecords(_ context.Context, limit int) ([]*api.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, e)
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.rec.FinishedAt.Equal(b.rec.FinishedAt) {
			return a.rec.FinishedAt.After(b.rec.FinishedAt)
		}
		return a.seq > b.seq
	})

	limit = storage.NormalizeLimit(limit)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*api.GenerationRecord, len(matches))
	for i, e := range matches {
		rec := e.rec
		out[i] = &rec
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently saved record.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
