package source

import (
	"context"
	"sync"
)

// AsyncSequenceHandle is the generic fallback shape: any object
// exposing a single-item pull with an explicit has-more flag, for
// sources that are neither a pull-stream, an event-stream, nor a
// socket.
type AsyncSequenceHandle interface {
	Next(ctx context.Context) (item any, ok bool, err error)
	Close() error
}

// AsyncSequenceAdapter wraps an AsyncSequenceHandle, validating and
// normalizing its items identically to the other adapters.
type AsyncSequenceAdapter struct {
	handle AsyncSequenceHandle

	mu      sync.Mutex
	started bool
	chunks  chan string
	errs    chan error
	cancel  context.CancelFunc
}

// NewAsyncSequenceAdapter wraps an async-iteration source.
func NewAsyncSequenceAdapter(handle AsyncSequenceHandle) *AsyncSequenceAdapter {
	return &AsyncSequenceAdapter{handle: handle}
}

func (a *AsyncSequenceAdapter) Chunks(ctx context.Context) (<-chan string, <-chan error) {
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

func (a *AsyncSequenceAdapter) run(ctx context.Context) {
	defer close(a.chunks)
	defer close(a.errs)
	for {
		item, ok, err := a.handle.Next(ctx)
		if err != nil {
			a.errs <- err
			return
		}
		if !ok {
			return
		}
		text, err := normalizeChunk(item, ErrUnsupportedChunkType)
		if err != nil {
			a.errs <- err
			return
		}
		select {
		case a.chunks <- text:
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the pump and closes the handle. Safe to call more than
// once; each call closes the handle again.
func (a *AsyncSequenceAdapter) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.handle.Close()
}
