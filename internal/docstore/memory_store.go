package docstore

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/stepgate/stepgate/pkg/api"
)

// MemoryStore keeps uploaded documents in memory. Intended for tests and
// local development.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ api.BlobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(ctx context.Context, scopeID, name, mimeType string, r io.Reader, size int64) (api.StoredObject, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return api.StoredObject{}, fmt.Errorf("read upload %q: %w", name, err)
	}

	ref := scopeID + "/" + uuid.NewString()[:8] + "-" + sanitizeName(name)

	s.mu.Lock()
	s.objects[ref] = data
	s.mu.Unlock()

	return api.StoredObject{
		StorageRef: ref,
		PublicURL:  "memory://" + ref,
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, storageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageRef)
	return nil
}

// Get returns the stored bytes for a reference.
func (s *MemoryStore) Get(storageRef string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[storageRef]
	return data, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
