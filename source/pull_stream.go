package source

import (
	"context"
	"io"
	"sync"
)

// PullStreamHandle is a readable handle that yields one item on
// demand. Pull returns io.EOF to signal natural completion.
type PullStreamHandle interface {
	Pull(ctx context.Context) (any, error)
	Close() error
}

// PullStreamAdapter wraps a PullStreamHandle.
type PullStreamAdapter struct {
	handle PullStreamHandle

	mu      sync.Mutex
	started bool
	chunks  chan string
	errs    chan error
	cancel  context.CancelFunc
}

// NewPullStreamAdapter wraps an already-open pull-stream handle.
func NewPullStreamAdapter(handle PullStreamHandle) *PullStreamAdapter {
	return &PullStreamAdapter{handle: handle}
}

func (a *PullStreamAdapter) Chunks(ctx context.Context) (<-chan string, <-chan error) {
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

func (a *PullStreamAdapter) run(ctx context.Context) {
	defer close(a.chunks)
	defer close(a.errs)
	for {
		item, err := a.handle.Pull(ctx)
		if err != nil {
			if err != io.EOF {
				a.errs <- err
			}
			return
		}
		text, err := normalizeChunk(item, ErrUnsupportedChunkTypePullStream)
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
func (a *PullStreamAdapter) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.handle.Close()
}
