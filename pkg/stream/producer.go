package stream

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// EmitFunc hands one chunk to the consumer. It blocks while the buffer is
// full and fails once the producer is cancelled.
type EmitFunc func(chunk []byte) error

// GenerateFunc produces the chunks of one stream.
type GenerateFunc func(ctx context.Context, emit EmitFunc) error

// Producer is a finite, non-restartable chunk sequence with backpressure.
type Producer struct {
	gen    GenerateFunc
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once

	pending []byte
	peeked  bool
	peekErr error

	// err is written before ch is closed.
	err error
}

// NewProducer creates a producer whose generator runs on first pull. depth
// bounds how many chunks may be generated ahead of the consumer.
func NewProducer(ctx context.Context, depth int, gen GenerateFunc) *Producer {
	if depth < 0 {
		depth = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Producer{
		gen:    gen,
		ch:     make(chan []byte, depth),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Next returns the next chunk, io.EOF after the last one, or the generator's
// error. It blocks until a chunk is available or ctx is done.
func (p *Producer) Next(ctx context.Context) ([]byte, error) {
	if p.peeked {
		p.peeked = false
		chunk, err := p.pending, p.peekErr
		p.pending, p.peekErr = nil, nil
		return chunk, err
	}
	return p.next(ctx)
}

// Peek pulls the first chunk without consuming it, so callers can fail the
// request before committing response headers. It returns nil for an empty
// stream. Next returns the peeked chunk (or error) first.
func (p *Producer) Peek(ctx context.Context) error {
	if p.peeked {
		if p.peekErr == io.EOF {
			return nil
		}
		return p.peekErr
	}
	chunk, err := p.next(ctx)
	if err != nil && err != io.EOF && ctx.Err() != nil {
		return err
	}
	p.pending, p.peekErr, p.peeked = chunk, err, true
	if err == io.EOF {
		return nil
	}
	return err
}

func (p *Producer) next(ctx context.Context) ([]byte, error) {
	p.start.Do(func() { go p.run() })

	select {
	case chunk, ok := <-p.ch:
		if !ok {
			if p.err != nil {
				return nil, p.err
			}
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts generation. Safe to call more than once.
func (p *Producer) Cancel() {
	p.cancel()
	p.start.Do(func() {
		close(p.ch)
		close(p.done)
	})
}

// Done is closed once the generator has returned (or will never run).
func (p *Producer) Done() <-chan struct{} {
	return p.done
}

func (p *Producer) run() {
	defer close(p.done)
	defer close(p.ch)
	defer func() {
		if r := recover(); r != nil {
			p.err = fmt.Errorf("%w: panic: %v", ErrRender, r)
		}
	}()
	defer p.cancel()

	if err := p.gen(p.ctx, p.emit); err != nil {
		p.err = err
	}
}

func (p *Producer) emit(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case p.ch <- chunk:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Collect drains p into memory. Intended for tests and small payloads.
func Collect(ctx context.Context, p *Producer) ([]byte, error) {
	var out []byte
	for {
		chunk, err := p.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk...)
	}
}
