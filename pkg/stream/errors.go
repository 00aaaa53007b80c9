package stream

import "errors"

var (
	// ErrTransportClosed is returned when the peer went away or the transport
	// refused a write. It is not reported to the client.
	ErrTransportClosed = errors.New("stream: transport closed")

	// ErrRender is returned when the generator failed after output started.
	ErrRender = errors.New("stream: render failed")

	// ErrHandleClosed is returned when writing to a closed Handle.
	ErrHandleClosed = errors.New("stream: handle closed")
)
