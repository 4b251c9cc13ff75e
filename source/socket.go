package source

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// SocketHandle is a bidirectional message socket. Its method set
// matches *websocket.Conn exactly (ReadMessage/WriteMessage/Close), so
// a live gorilla/websocket connection satisfies it directly with no
// wrapper type.
type SocketHandle interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SocketAdapter wraps a bidirectional message socket. Text frames pass
// through as-is; binary frames are treated as UTF-8 text; any other
// frame type rejects with ErrUnsupportedChunkType. A close frame, at
// any status code, ends the sequence normally; any other read error
// rejects with ErrWebSocket.
type SocketAdapter struct {
	handle SocketHandle

	mu      sync.Mutex
	started bool
	chunks  chan string
	errs    chan error
	cancel  context.CancelFunc
}

// NewSocketAdapter wraps an already-open bidirectional socket.
func NewSocketAdapter(handle SocketHandle) *SocketAdapter {
	return &SocketAdapter{handle: handle}
}

func (a *SocketAdapter) Chunks(ctx context.Context) (<-chan string, <-chan error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return a.chunks, a.errs
	}
	a.started = true
	a.chunks = make(chan string)
	a.errs = make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.run(runCtx)
	return a.chunks, a.errs
}

func (a *SocketAdapter) run(ctx context.Context) {
	defer close(a.chunks)
	defer close(a.errs)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msgType, data, err := a.handle.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return // onclose: normal end regardless of status code
			}
			a.errs <- ErrWebSocket
			return
		}
		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			select {
			case a.chunks <- string(data):
			case <-ctx.Done():
				return
			}
		default:
			a.errs <- ErrUnsupportedChunkType
			return
		}
	}
}

// Stop cancels the pump and closes the socket. Safe to call more than
// once; each call closes the socket again.
func (a *SocketAdapter) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.handle.Close()
}
