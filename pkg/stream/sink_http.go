package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// HTTPSink writes chunks to an http.ResponseWriter and flushes after each one.
type HTTPSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewHTTPSink wraps w. Headers must be set before the first chunk.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	return &HTTPSink{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteChunk writes and flushes chunk.
func (s *HTTPSink) WriteChunk(ctx context.Context, chunk []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	if _, err := s.w.Write(chunk); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return nil
}

// Close is a no-op: the response ends when the handler returns.
func (s *HTTPSink) Close() error {
	return nil
}
