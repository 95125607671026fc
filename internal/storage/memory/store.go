// Package memory stores blob content in-memory for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// BlobStore keeps uploaded objects in a map and hands out pseudo URLs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory blob store.
func New() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// Upload stores the content and returns a memory:// URL.
func (s *BlobStore) Upload(_ context.Context, objectPath, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectPath] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", objectPath), nil
}

// Object returns a stored object's bytes.
func (s *BlobStore) Object(objectPath string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[objectPath]
	return data, ok
}

// Len reports the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
