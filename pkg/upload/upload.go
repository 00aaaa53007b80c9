package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a temp file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrTypeNotAllowed is returned for a content type outside the allow-list.
var ErrTypeNotAllowed = errors.New("upload: content type not allowed")

// Store is the interface for upload storage backends.
type Store interface {
	// Save stores the file and returns a temp ID. The file stays
	// until Claim is called or it expires.
	Save(ctx context.Context, filename, contentType string, r io.Reader) (tempID string, err error)

	// Claim retrieves a temp file. The stored bytes are removed when the
	// returned File is closed.
	Claim(ctx context.Context, tempID string) (*File, error)

	// Cleanup removes temp files older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is an uploaded file handed to an action.
type File struct {
	// ID is the unique identifier for this upload.
	ID string `json:"id"`

	// Filename is the original filename from the client.
	Filename string `json:"filename"`

	// ContentType is the MIME type of the file.
	ContentType string `json:"contentType"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Path is the local filesystem path (DiskStore only).
	Path string `json:"-"`

	// URL is a presigned download URL (S3Store only).
	URL string `json:"url,omitempty"`

	// Reader provides access to the file contents.
	Reader io.ReadCloser `json:"-"`
}

// Read reads from the file contents.
func (f *File) Read(p []byte) (int, error) {
	if f.Reader == nil {
		return 0, io.EOF
	}
	return f.Reader.Read(p)
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// newTempID returns a sortable random identifier.
func newTempID() string {
	return ulid.Make().String()
}

// validTempID rejects IDs that were not produced by newTempID, which also
// keeps them free of path separators.
func validTempID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// TypeAllowed reports whether contentType matches the allow-list. Parameters
// and case are ignored; an empty list allows everything. Entries ending in
// "/*" match a whole top-level type.
func TypeAllowed(allowed []string, contentType string) bool {
	if len(allowed) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	for _, a := range allowed {
		a = strings.ToLower(a)
		if a == mediaType {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(mediaType, prefix+"/") {
			return true
		}
	}
	return false
}

// limitedCopy copies at most max bytes (0 = no limit) and reports
// ErrTooLarge when r holds more.
func limitedCopy(w io.Writer, r io.Reader, max int64) (int64, error) {
	if max <= 0 {
		return io.Copy(w, r)
	}
	n, err := io.Copy(w, io.LimitReader(r, max+1))
	if err != nil {
		return n, err
	}
	if n > max {
		return n, ErrTooLarge
	}
	return n, nil
}

// Janitor calls store.Cleanup every interval until ctx is done.
func Janitor(ctx context.Context, store Store, interval, maxAge time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, maxAge); err != nil && logger != nil {
				logger.Warn("upload cleanup failed", "error", err)
			}
		}
	}
}
