package keystore

import (
	"errors"
	"sync"

	"github.com/stepgate/stepgate/pkg/api"
)

// DefaultQuota is the default byte budget of a MemoryStore, mirroring the
// size bounds of browser-local storage media.
const DefaultQuota = 5 << 20

var errQuota = errors.New("store quota exceeded")

// MemoryStore is a goroutine-safe, quota-bounded KeyStore backed by a map.
//
// A write that would push the total stored size past the quota fails with
// FailureQuotaExceeded and leaves the previously stored value intact, so a
// later rehydration sees the last successfully persisted snapshot.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	used   int
	quota  int

	*notifier
}

// Ensure MemoryStore implements api.KeyStore.
var _ api.KeyStore = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore with the given quota in bytes.
// quota <= 0 selects DefaultQuota.
func NewMemoryStore(quota int) *MemoryStore {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemoryStore{
		values:   make(map[string][]byte),
		quota:    quota,
		notifier: newNotifier(),
	}
}

func (s *MemoryStore) Read(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, api.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Write(key string, value []byte) *api.Failure {
	s.mu.Lock()

	delta := len(value) - len(s.values[key])
	if s.used+delta > s.quota {
		s.mu.Unlock()
		f := api.Failure{Key: key, Kind: api.FailureQuotaExceeded, Err: errQuota}
		s.notify(f)
		return &f
	}

	s.values[key] = append([]byte(nil), value...)
	s.used += delta
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.used -= len(s.values[key])
	delete(s.values, key)
}

func (s *MemoryStore) Subscribe(fn func(api.Failure)) func() {
	return s.subscribe(fn)
}

// Used returns the number of bytes currently stored.
func (s *MemoryStore) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}
