package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Pipe copies p into h chunk by chunk, waiting for h to accept each chunk
// before pulling the next. It closes h exactly once on every path.
//
// If ctx ends (client disconnect) or the sink rejects a write, p is cancelled
// and the returned error wraps ErrTransportClosed. A generator failure is
// returned as is; bytes already delivered stay delivered.
func Pipe(ctx context.Context, p *Producer, h *Handle) (err error) {
	defer func() {
		h.CloseWithError(err)
	}()

	for {
		chunk, nextErr := p.Next(ctx)
		if nextErr == io.EOF {
			return nil
		}
		if nextErr != nil {
			if ctx.Err() != nil {
				p.Cancel()
				return fmt.Errorf("%w: %v", ErrTransportClosed, ctx.Err())
			}
			return nextErr
		}

		if writeErr := h.Write(ctx, chunk); writeErr != nil {
			p.Cancel()
			if errors.Is(writeErr, ErrTransportClosed) {
				return writeErr
			}
			return fmt.Errorf("%w: %v", ErrTransportClosed, writeErr)
		}
	}
}
