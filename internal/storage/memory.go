package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps objects in a map. Used in tests and when no bucket is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Store(ctx context.Context, data []byte, contentType string) (*Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := "resumes/" + uuid.New().String()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf

	return &Object{Key: key, URL: "memory://" + key}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are held. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

var _ ResumeStore = (*MemoryStore)(nil)
