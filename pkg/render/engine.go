package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/vango-dev/shipyard/pkg/protocol"
	"github.com/vango-dev/shipyard/pkg/stream"
	"github.com/vango-dev/shipyard/pkg/vdom"
)

// Config configures an Engine.
type Config struct {
	// ChunkSize is the markup size per HTML row. Defaults to
	// stream.DefaultChunkSize.
	ChunkSize int

	// Buffer is how many rows may be produced ahead of the transport.
	// Defaults to 1.
	Buffer int
}

// Input is what one render serializes.
type Input struct {
	Root *vdom.VNode

	// Result is emitted as the first row when HasResult is set.
	Result    any
	HasResult bool
}

// PageInput renders root with no injected result.
func PageInput(root *vdom.VNode) Input {
	return Input{Root: root}
}

// ActionInput renders root with result injected ahead of the markup.
func ActionInput(root *vdom.VNode, result any) Input {
	return Input{Root: root, Result: result, HasResult: true}
}

// Error is returned by the producer when rendering fails.
type Error struct {
	// Started reports whether any row had been emitted.
	Started bool
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{stream.ErrRender, e.Err}
}

// Engine turns render inputs into row producers.
type Engine struct {
	config Config
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil logger uses slog.Default().
func NewEngine(config Config, logger *slog.Logger) *Engine {
	if config.ChunkSize <= 0 {
		config.ChunkSize = stream.DefaultChunkSize
	}
	if config.Buffer <= 0 {
		config.Buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{config: config, logger: logger}
}

// Render returns a lazy producer of the rows for in. Rendering starts on the
// first pull and stops when ctx ends or the producer is cancelled.
func (e *Engine) Render(ctx context.Context, in Input) *stream.Producer {
	return stream.NewProducer(ctx, e.config.Buffer, func(ctx context.Context, emit stream.EmitFunc) error {
		return e.generate(ctx, in, emit)
	})
}

func (e *Engine) generate(ctx context.Context, in Input, emit stream.EmitFunc) error {
	enc := protocol.NewEncoder()

	if in.HasResult {
		row, err := enc.Result(in.Result)
		if err != nil {
			return &Error{Err: err}
		}
		if err := emit(row); err != nil {
			return err
		}
	}

	framer := &htmlFramer{enc: enc, emit: emit}
	cw := stream.NewChunkWriter(e.config.ChunkSize, framer.write)
	r := NewRenderer(WithFlush(cw.Flush))

	err := r.RenderToWriter(ctx, cw, in.Root)
	if err == nil {
		err = cw.Flush()
	}
	if err == nil {
		err = framer.finish()
	}
	if err == nil {
		return nil
	}

	// Cancellation is a transport concern; nobody is listening for rows.
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}

	started := enc.Rows() > 0
	if !started {
		return &Error{Err: err}
	}

	e.logger.Warn("render failed mid-stream", "error", err, "rows", enc.Rows())
	if emitErr := emit(enc.Error(err.Error())); emitErr != nil {
		return emitErr
	}
	return &Error{Started: true, Err: err}
}

// htmlFramer wraps markup chunks into HTML rows, holding back a trailing
// partial UTF-8 sequence until the next chunk.
type htmlFramer struct {
	enc   *protocol.Encoder
	emit  stream.EmitFunc
	carry []byte
}

func (f *htmlFramer) write(chunk []byte) error {
	if len(f.carry) > 0 {
		chunk = append(f.carry, chunk...)
		f.carry = nil
	}
	n := completeUTF8(chunk)
	if n < len(chunk) {
		f.carry = append([]byte(nil), chunk[n:]...)
		chunk = chunk[:n]
	}
	if len(chunk) == 0 {
		return nil
	}
	return f.emit(f.enc.HTML(chunk))
}

func (f *htmlFramer) finish() error {
	if len(f.carry) == 0 {
		return nil
	}
	chunk := f.carry
	f.carry = nil
	return f.emit(f.enc.HTML(chunk))
}

// completeUTF8 returns the length of the longest prefix of b that does not
// end inside a multi-byte sequence.
func completeUTF8(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
