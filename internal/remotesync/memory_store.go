// Package remotesync replicates the form state to a remote record:
// debounced fire-and-forget auto-saves plus an awaited force-sync path
// invoked before step transitions. Records are upserted by session id and
// never duplicated.
package remotesync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stepgate/stepgate/pkg/api"
)

// MemoryRecordStore is a goroutine-safe RecordStore backed by a map,
// intended for tests and non-durable deployments.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	bySess  map[string]*api.Record
	upserts int
}

// Ensure MemoryRecordStore implements api.RecordStore.
var _ api.RecordStore = (*MemoryRecordStore)(nil)

// NewMemoryRecordStore creates an empty MemoryRecordStore.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{bySess: make(map[string]*api.Record)}
}

func (s *MemoryRecordStore) Upsert(ctx context.Context, snap api.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upserts++
	now := time.Now()
	if rec, ok := s.bySess[snap.SessionID]; ok {
		rec.Snapshot = snap
		rec.UpdatedAt = now
		return rec.ID, nil
	}

	rec := &api.Record{
		ID:        uuid.NewString(),
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.bySess[snap.SessionID] = rec
	return rec.ID, nil
}

func (s *MemoryRecordStore) Get(ctx context.Context, sessionID string) (*api.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.bySess[sessionID]
	if !ok {
		return nil, api.ErrRecordNotFound
	}
	copied := *rec
	return &copied, nil
}

// Upserts returns the number of upsert calls observed, for tests.
func (s *MemoryRecordStore) Upserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}

// Len returns the number of distinct records.
func (s *MemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySess)
}
