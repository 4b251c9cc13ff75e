package stream

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flitsinc/jsonstream/chunk"
	"github.com/flitsinc/jsonstream/metrics"
)

// fakePullStream is a minimal source.PullStreamHandle: it yields each
// of items in turn, then io.EOF.
type fakePullStream struct {
	items []string

	mu         sync.Mutex
	pos        int
	closeCount int
}

func (f *fakePullStream) Pull(ctx context.Context) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.items) {
		return nil, io.EOF
	}
	item := f.items[f.pos]
	f.pos++
	return item, nil
}

func (f *fakePullStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

func collectAll(t *testing.T, s *Stream) []chunk.Record {
	t.Helper()
	var got []chunk.Record
	for {
		select {
		case r, ok := <-s.Records():
			if !ok {
				return got
			}
			got = append(got, r)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream records")
		}
	}
}

func TestParseEndToEnd(t *testing.T) {
	handle := &fakePullStream{items: []string{`{"a`, `":1}`}}
	s, err := Parse(context.Background(), handle)
	require.NoError(t, err)

	recs := collectAll(t, s)
	require.NoError(t, s.Err())

	var kinds []chunk.Kind
	for _, r := range recs {
		kinds = append(kinds, r.Type)
	}
	// The key is split across the two pull items, so it arrives as two
	// Key fragments: the partial text at the chunk boundary, then the
	// (possibly empty) fragment that closes the key string.
	assert.Equal(t, []chunk.Kind{chunk.ObjectStart, chunk.Key, chunk.Key, chunk.Number, chunk.ObjectEnd}, kinds)

	var value chunk.Record
	for _, r := range recs {
		if r.Type == chunk.Number {
			value = r
		}
	}
	assert.Equal(t, "$.a", value.Path())
	assert.Equal(t, "/a", value.Pointer())
}

func TestParseSurfacesLexError(t *testing.T) {
	handle := &fakePullStream{items: []string{`{"a":tru3}`}}
	s, err := Parse(context.Background(), handle)
	require.NoError(t, err)

	collectAll(t, s)
	assert.Error(t, s.Err())
}

func TestParseRejectsUnsupportedSourceSynchronously(t *testing.T) {
	_, err := Parse(context.Background(), 42)
	assert.Error(t, err)
}

func TestStopEndsStreamAndClosesHandleEachCall(t *testing.T) {
	handle := &fakePullStream{items: []string{`1`, `0`, `0`}}
	s, err := Parse(context.Background(), handle)
	require.NoError(t, err)

	s.Stop()
	s.Stop()

	// Drain whatever made it through before cancellation landed.
	for range s.Records() {
	}
	assert.Equal(t, 2, handle.closeCount)
}

func TestParseReportsMetrics(t *testing.T) {
	handle := &fakePullStream{items: []string{`[1,2,3]`}}
	collector := metrics.NewCollector()
	s, err := Parse(context.Background(), handle, WithMetrics(collector))
	require.NoError(t, err)

	recs := collectAll(t, s)
	require.NoError(t, s.Err())
	assert.Len(t, recs, 5) // ArrayStart, 1, 2, 3, ArrayEnd

	assert.Equal(t, float64(3), testutil.ToFloat64(collector.Fragments.WithLabelValues("number", s.id.String())))
	assert.True(t, testutil.ToFloat64(collector.Bytes.WithLabelValues(s.id.String())) > 0)
}
