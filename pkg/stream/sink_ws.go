package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSink sends each chunk as one text message.
type WebSocketSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

// NewWebSocketSink wraps an upgraded connection.
func NewWebSocketSink(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketSink {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &WebSocketSink{conn: conn, writeTimeout: writeTimeout}
}

// WriteChunk sends chunk and returns once the frame is written.
func (s *WebSocketSink) WriteChunk(ctx context.Context, chunk []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, chunk); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return nil
}

// Close sends a normal close frame and closes the connection.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

// WatchPeer reads from conn until the peer goes away, then calls cancel.
// Run it in its own goroutine; it returns when the connection is closed.
func WatchPeer(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
