package upload

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps uploads in memory.
type MemoryStore struct {
	maxSize int64

	mu    sync.Mutex
	files map[string]*memEntry
}

type memEntry struct {
	filename    string
	contentType string
	data        []byte
	createdAt   time.Time
}

// NewMemoryStore creates a MemoryStore. maxSize 0 means no limit.
func NewMemoryStore(maxSize int64) *MemoryStore {
	return &MemoryStore{
		maxSize: maxSize,
		files:   make(map[string]*memEntry),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := limitedCopy(&buf, r, s.maxSize); err != nil {
		return "", err
	}

	tempID := newTempID()
	s.mu.Lock()
	s.files[tempID] = &memEntry{
		filename:    filename,
		contentType: contentType,
		data:        buf.Bytes(),
		createdAt:   time.Now(),
	}
	s.mu.Unlock()
	return tempID, nil
}

// Claim implements Store. The entry is removed immediately.
func (s *MemoryStore) Claim(ctx context.Context, tempID string) (*File, error) {
	s.mu.Lock()
	e, ok := s.files[tempID]
	delete(s.files, tempID)
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return &File{
		ID:          tempID,
		Filename:    e.filename,
		ContentType: e.contentType,
		Size:        int64(len(e.data)),
		Reader:      io.NopCloser(bytes.NewReader(e.data)),
	}, nil
}

// Cleanup implements Store.
func (s *MemoryStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.files {
		if e.createdAt.Before(cutoff) {
			delete(s.files, id)
		}
	}
	return nil
}

// Len returns the number of unclaimed files.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
