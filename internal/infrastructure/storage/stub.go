package storage

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
)

var _ invoicingapp.DocumentStore = (*MemoryDocumentStore)(nil)

// MemoryDocumentStore keeps documents in process memory.
// The server falls back to it in development when no bucket is configured.
type MemoryDocumentStore struct {
	// BaseURL prefixes presigned URLs
	BaseURL string

	mu      sync.Mutex
	objects map[string]invoicingapp.File
	now     func() time.Time
	// FailPut makes every Put fail, for exercising upload error paths
	FailPut bool
}

// NewMemoryDocumentStore creates an empty MemoryDocumentStore
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		BaseURL: "https://storage.example.com",
		objects: make(map[string]invoicingapp.File),
		now:     time.Now,
	}
}

// Put stores a copy of the file
func (s *MemoryDocumentStore) Put(_ context.Context, file invoicingapp.File, folder string) (string, error) {
	if s.FailPut {
		return "", errors.New("storage unavailable")
	}
	if len(file.Data) == 0 {
		return "", ErrEmptyFile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ObjectKey(folder, file.Name, s.now())
	// Keys carry a millisecond timestamp; disambiguate uploads within the same tick
	for i := 1; ; i++ {
		if _, taken := s.objects[key]; !taken {
			break
		}
		key = ObjectKey(folder, strconv.Itoa(i)+"-"+file.Name, s.now())
	}

	data := make([]byte, len(file.Data))
	copy(data, file.Data)
	file.Data = data
	s.objects[key] = file
	return key, nil
}

// Presign returns a fake URL for stored keys and "" for unknown ones
func (s *MemoryDocumentStore) Presign(_ context.Context, key string, ttl time.Duration) string {
	key = CleanKey(key)

	s.mu.Lock()
	_, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return ""
	}

	q := url.Values{}
	q.Set("expires", s.now().Add(ttl).UTC().Format(time.RFC3339))
	return s.BaseURL + "/" + key + "?" + q.Encode()
}

// Delete drops the object if present
func (s *MemoryDocumentStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, CleanKey(key))
	return nil
}

// Get returns a stored file
func (s *MemoryDocumentStore) Get(key string) (invoicingapp.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.objects[key]
	return f, ok
}

// Len returns the number of stored objects
func (s *MemoryDocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
