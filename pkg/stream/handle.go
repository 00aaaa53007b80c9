package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// Sink is the transport side of a stream.
type Sink interface {
	// WriteChunk delivers one chunk and returns once the transport has
	// accepted it.
	WriteChunk(ctx context.Context, chunk []byte) error

	// Close ends the outbound stream.
	Close() error
}

// State is the lifecycle state of a Handle.
type State int32

const (
	StateOpen State = iota
	StateWriting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Observer is notified when handles open and close.
type Observer interface {
	StreamOpened(h *Handle)
	StreamClosed(h *Handle, err error)
}

// Handle is the live outbound channel of one response.
// It moves Open -> Writing -> Closed and is released exactly once.
type Handle struct {
	id    string
	sink  Sink
	state atomic.Int32

	bytes  atomic.Int64
	chunks atomic.Int64

	mu        sync.Mutex
	onClose   []func(h *Handle, err error)
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithObserver reports the handle's lifecycle to o.
func WithObserver(o Observer) HandleOption {
	return func(h *Handle) {
		if o == nil {
			return
		}
		o.StreamOpened(h)
		h.onClose = append(h.onClose, o.StreamClosed)
	}
}

// WithID overrides the generated handle ID.
func WithID(id string) HandleOption {
	return func(h *Handle) {
		h.id = id
	}
}

// NewHandle opens a handle over sink.
func NewHandle(sink Sink, opts ...HandleOption) *Handle {
	h := &Handle{
		id:     ulid.Make().String(),
		sink:   sink,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID returns the handle identifier.
func (h *Handle) ID() string { return h.id }

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Bytes returns the number of bytes accepted by the sink.
func (h *Handle) Bytes() int64 { return h.bytes.Load() }

// Chunks returns the number of chunks accepted by the sink.
func (h *Handle) Chunks() int64 { return h.chunks.Load() }

// Done is closed when the handle is closed.
func (h *Handle) Done() <-chan struct{} { return h.closed }

// Err returns the error the handle was closed with.
func (h *Handle) Err() error {
	select {
	case <-h.closed:
		return h.closeErr
	default:
		return nil
	}
}

// OnClose registers fn to run once when the handle closes. If the handle is
// already closed fn runs immediately.
func (h *Handle) OnClose(fn func(h *Handle, err error)) {
	h.mu.Lock()
	select {
	case <-h.closed:
		h.mu.Unlock()
		fn(h, h.closeErr)
		return
	default:
	}
	h.onClose = append(h.onClose, fn)
	h.mu.Unlock()
}

// Write hands chunk to the sink and waits for it to be accepted.
func (h *Handle) Write(ctx context.Context, chunk []byte) error {
	if h.State() == StateClosed {
		return ErrHandleClosed
	}
	h.state.CompareAndSwap(int32(StateOpen), int32(StateWriting))

	if err := h.sink.WriteChunk(ctx, chunk); err != nil {
		return err
	}
	h.bytes.Add(int64(len(chunk)))
	h.chunks.Add(1)
	return nil
}

// Close releases the handle. Only the first call has an effect.
func (h *Handle) Close() error {
	return h.CloseWithError(nil)
}

// CloseWithError releases the handle, recording why the stream ended.
func (h *Handle) CloseWithError(cause error) error {
	var sinkErr error
	h.closeOnce.Do(func() {
		h.state.Store(int32(StateClosed))
		sinkErr = h.sink.Close()

		h.mu.Lock()
		h.closeErr = cause
		hooks := h.onClose
		h.onClose = nil
		close(h.closed)
		h.mu.Unlock()

		for _, fn := range hooks {
			fn(h, cause)
		}
	})
	return sinkErr
}
