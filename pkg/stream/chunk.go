package stream

// DefaultChunkSize is the default size of chunks cut by ChunkWriter.
const DefaultChunkSize = 4 << 10

// ChunkWriter is an io.Writer that cuts its input into chunks of a fixed
// size and emits each one. Emitted slices are never reused.
type ChunkWriter struct {
	emit EmitFunc
	size int
	buf  []byte
}

// NewChunkWriter creates a ChunkWriter. size <= 0 selects DefaultChunkSize.
func NewChunkWriter(size int, emit EmitFunc) *ChunkWriter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &ChunkWriter{
		emit: emit,
		size: size,
		buf:  make([]byte, 0, size),
	}
}

// Write implements io.Writer. It blocks whenever emit blocks.
func (w *ChunkWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := w.size - len(w.buf)
		if n > len(p) {
			n = len(p)
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		written += n

		if len(w.buf) == w.size {
			if err := w.Flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Flush emits any buffered bytes as a (possibly short) chunk.
func (w *ChunkWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	chunk := w.buf
	w.buf = make([]byte, 0, w.size)
	return w.emit(chunk)
}

// Buffered returns the number of bytes not yet emitted.
func (w *ChunkWriter) Buffered() int {
	return len(w.buf)
}
