package upload

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DiskStore stores uploads on the local filesystem.
type DiskStore struct {
	dir     string
	maxSize int64

	mu    sync.RWMutex
	files map[string]*diskMeta
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates a DiskStore rooted at dir. maxSize 0 means no limit.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		files:   make(map[string]*diskMeta),
	}, nil
}

// Save implements Store.
func (s *DiskStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	tempID := newTempID()
	path := filepath.Join(s.dir, tempID)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	written, err := limitedCopy(f, r, s.maxSize)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	meta := &diskMeta{
		Filename:    filename,
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.files[tempID] = meta
	s.mu.Unlock()

	// The sidecar lets a restarted process claim files saved before it.
	if err := s.saveMeta(tempID, meta); err != nil {
		return "", err
	}
	return tempID, nil
}

// Claim implements Store.
func (s *DiskStore) Claim(ctx context.Context, tempID string) (*File, error) {
	if !validTempID(tempID) {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	meta, ok := s.files[tempID]
	if ok {
		delete(s.files, tempID)
	}
	s.mu.Unlock()

	if !ok {
		var err error
		if meta, err = s.loadMeta(tempID); err != nil {
			return nil, ErrNotFound
		}
	}

	path := filepath.Join(s.dir, tempID)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &File{
		ID:          tempID,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Path:        path,
		Reader:      &deleteOnCloseReader{File: f, path: path, metaPath: s.metaPath(tempID)},
	}, nil
}

// Cleanup implements Store. It also removes orphaned files left by a
// previous process.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	for tempID, meta := range s.files {
		if meta.CreatedAt.Before(cutoff) {
			delete(s.files, tempID)
			os.Remove(filepath.Join(s.dir, tempID))
			os.Remove(s.metaPath(tempID))
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
			delete(s.files, strings.TrimSuffix(entry.Name(), ".meta"))
		}
	}
	return nil
}

func (s *DiskStore) metaPath(tempID string) string {
	return filepath.Join(s.dir, tempID+".meta")
}

func (s *DiskStore) saveMeta(tempID string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(tempID), data, 0644)
}

func (s *DiskStore) loadMeta(tempID string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(tempID))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// deleteOnCloseReader wraps a file and deletes it when closed.
type deleteOnCloseReader struct {
	*os.File
	path     string
	metaPath string
}

func (r *deleteOnCloseReader) Close() error {
	err := r.File.Close()
	os.Remove(r.path)
	os.Remove(r.metaPath)
	return err
}
