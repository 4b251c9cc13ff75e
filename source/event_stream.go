package source

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// EventStreamHandle is an already-open server-sent-event body: a plain
// io.ReadCloser, scanned line by line.
type EventStreamHandle interface {
	io.Reader
	Close() error
}

// EventStreamAdapter wraps a server-sent-event handle. Each "data: "
// line becomes one text chunk; reaching the end of the body (the
// source already closed) ends the sequence normally, any other scan
// error rejects it with ErrServerSideEvent.
type EventStreamAdapter struct {
	handle EventStreamHandle

	mu      sync.Mutex
	started bool
	chunks  chan string
	errs    chan error
	cancel  context.CancelFunc
}

// NewEventStreamAdapter wraps an already-open SSE body.
func NewEventStreamAdapter(handle EventStreamHandle) *EventStreamAdapter {
	return &EventStreamAdapter{handle: handle}
}

func (a *EventStreamAdapter) Chunks(ctx context.Context) (<-chan string, <-chan error) {
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

func (a *EventStreamAdapter) run(ctx context.Context) {
	defer close(a.chunks)
	defer close(a.errs)
	scanner := bufio.NewScanner(a.handle)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			// EOF (the source already in the closed state) ends the
			// sequence normally; any other scanner error is a
			// server-side event error.
			if err := scanner.Err(); err != nil {
				a.errs <- ErrServerSideEvent
			}
			return
		}
		line, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		select {
		case a.chunks <- line:
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the pump and closes the handle. Safe to call more than
// once; each call closes the handle again.
func (a *EventStreamAdapter) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.handle.Close()
}
