// Package stream moves rendered bytes from a producer to a transport.
//
// A Producer is a lazy, bounded sequence of chunks fed by a generator
// goroutine. The generator blocks in Emit while the buffer is full, so a
// consumer that stops pulling stops generation; cancelling the producer's
// context aborts the generator.
//
// Pipe is the response adapter: it pulls one chunk at a time, hands it to a
// Handle (the live outbound channel wrapping a Sink) and waits for the sink to
// accept it before pulling the next. A transport failure cancels the producer,
// and the handle is closed exactly once whatever the outcome.
//
//	p := stream.NewProducer(ctx, 1, generate)
//	h := stream.NewHandle(stream.NewHTTPSink(w))
//	err := stream.Pipe(ctx, p, h)
package stream
