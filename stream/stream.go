// Package stream ties a source adapter to the locator, publishing
// located chunk.Records over a channel from a single producer
// goroutine that owns the channel for its entire lifetime.
package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flitsinc/jsonstream/chunk"
	"github.com/flitsinc/jsonstream/locator"
	"github.com/flitsinc/jsonstream/metrics"
	"github.com/flitsinc/jsonstream/source"
)

// Option configures a Stream at Parse time.
type Option func(*options)

type options struct {
	metrics *metrics.Collector
}

// WithMetrics reports fragment/byte/error counters to c as the stream
// runs.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// Stream is a single-pass pipeline from one source to a channel of
// located chunk.Records.
type Stream struct {
	id      uuid.UUID
	records chan chunk.Record
	adapter source.Adapter
	cancel  context.CancelFunc

	mu  sync.Mutex
	err error
}

// Parse detects an adapter for src, wires it through the lexer and
// locator, and starts the single producer goroutine. It returns an
// error synchronously only when no adapter can be found for src;
// every other failure surfaces later through Err after Records closes.
func Parse(ctx context.Context, src any, opts ...Option) (*Stream, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	adapter, err := source.NewFactory().Create(src)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		id:      uuid.New(),
		records: make(chan chunk.Record),
		adapter: adapter,
		cancel:  cancel,
	}

	chunks, adapterErrs := adapter.Chunks(runCtx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.produce(gctx, chunks, adapterErrs, o.metrics) })

	go func() {
		s.setErr(g.Wait())
	}()

	return s, nil
}

func (s *Stream) produce(ctx context.Context, chunks <-chan string, adapterErrs <-chan error, m *metrics.Collector) (err error) {
	// Store the terminal error before closing records, so Err already
	// reports it to a consumer that has just seen Records close.
	defer func() {
		s.setErr(err)
		close(s.records)
	}()
	sessionID := s.id.String()
	loc := locator.New()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-chunks:
			if !ok {
				// Adapters close their error channel before their chunk
				// channel, so an error they sent is already buffered.
				if adapterErrs != nil {
					if err, ok := <-adapterErrs; ok && err != nil {
						return err
					}
				}
				if err := loc.Finish(); err != nil {
					if m != nil {
						m.ObserveLexError(sessionID)
					}
					return err
				}
				return nil
			}
			if m != nil {
				m.ObserveBytes(sessionID, len(text))
			}
			records, err := loc.Feed(text)
			for _, r := range records {
				if m != nil {
					m.ObserveFragment(sessionID, r.Type)
				}
				select {
				case s.records <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err != nil {
				if m != nil {
					m.ObserveLexError(sessionID)
				}
				return err
			}
		case err, ok := <-adapterErrs:
			if !ok {
				// No error is ever coming on this channel again; stop
				// selecting it so a closed channel can't spin the loop.
				adapterErrs = nil
				continue
			}
			if err != nil {
				return err
			}
		}
	}
}

// Records returns the channel of located records. It closes when the
// source ends, the context is cancelled, or a lex/transport error
// occurs; check Err once it closes.
func (s *Stream) Records() <-chan chunk.Record {
	return s.records
}

// Err returns the terminal error, if any, once Records has closed.
// Safe to call at any time; returns nil while the stream is still
// running or if it ended cleanly.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop cancels the producer and releases the adapter's handle. Safe to
// call more than once; each call may invoke the handle's underlying
// Close again.
func (s *Stream) Stop() {
	s.cancel()
	s.adapter.Stop()
}

func (s *Stream) setErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
