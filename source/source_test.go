package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakePullStream struct {
	items      []any
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

type fakeEventStream struct {
	*strings.Reader
	closeCount int
}

func (f *fakeEventStream) Close() error {
	f.closeCount++
	return nil
}

type fakeSocket struct {
	messages   []string
	mu         sync.Mutex
	pos        int
	closeCount int
	closeErr   error // returned once all messages are drained, if set
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.messages) {
		if f.closeErr != nil {
			return 0, nil, f.closeErr
		}
		return 0, nil, errors.New("no more messages")
	}
	msg := f.messages[f.pos]
	f.pos++
	return websocket.TextMessage, []byte(msg), nil
}

func (f *fakeSocket) WriteMessage(int, []byte) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

type fakeAsyncSeq struct {
	items      []any
	pos        int
	closeCount int
}

func (f *fakeAsyncSeq) Next(ctx context.Context) (any, bool, error) {
	if f.pos >= len(f.items) {
		return nil, false, nil
	}
	item := f.items[f.pos]
	f.pos++
	return item, true, nil
}

func (f *fakeAsyncSeq) Close() error {
	f.closeCount++
	return nil
}

// --- tests ---

func drain(t *testing.T, chunks <-chan string, errs <-chan error) ([]string, error) {
	t.Helper()
	var got []string
	var err error
loop:
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				break loop
			}
			got = append(got, c)
		case e, ok := <-errs:
			if ok && e != nil {
				err = e
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for adapter")
		}
	}
	// The error channel is closed before the chunk channel, so an error
	// not yet received above is already buffered here.
	if err == nil {
		if e, ok := <-errs; ok && e != nil {
			err = e
		}
	}
	return got, err
}

func TestPullStreamAdapterYieldsItemsThenCloses(t *testing.T) {
	handle := &fakePullStream{items: []any{"he", []byte("llo")}}
	a := NewPullStreamAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	got, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"he", "llo"}, got)
}

func TestPullStreamAdapterRejectsUnsupportedItem(t *testing.T) {
	handle := &fakePullStream{items: []any{42}}
	a := NewPullStreamAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	_, err := drain(t, chunks, errs)
	assert.ErrorIs(t, err, ErrUnsupportedChunkTypePullStream)
}

func TestPullStreamAdapterStopTwiceClosesTwice(t *testing.T) {
	handle := &fakePullStream{}
	a := NewPullStreamAdapter(handle)
	a.Chunks(context.Background())
	a.Stop()
	a.Stop()
	assert.Equal(t, 2, handle.closeCount)
}

func TestEventStreamAdapterEmitsDataLines(t *testing.T) {
	handle := &fakeEventStream{Reader: strings.NewReader("data: a\n\ndata: b\n")}
	a := NewEventStreamAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	got, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestEventStreamAdapterEOFEndsNormally(t *testing.T) {
	// A bare io.EOF from the scanner (the source already closed) must
	// not surface as ErrServerSideEvent.
	handle := &fakeEventStream{Reader: strings.NewReader("")}
	a := NewEventStreamAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	got, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSocketAdapterYieldsMessagesThenClosesNormally(t *testing.T) {
	handle := &fakeSocket{
		messages: []string{"one", "two", "three"},
		closeErr: &websocket.CloseError{Code: websocket.CloseAbnormalClosure},
	}
	a := NewSocketAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	got, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestSocketAdapterNonCloseErrorRejects(t *testing.T) {
	handle := &fakeSocket{closeErr: errors.New("connection reset")}
	a := NewSocketAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	_, err := drain(t, chunks, errs)
	assert.ErrorIs(t, err, ErrWebSocket)
}

func TestAsyncSequenceAdapterYieldsItems(t *testing.T) {
	handle := &fakeAsyncSeq{items: []any{"x", "y"}}
	a := NewAsyncSequenceAdapter(handle)
	chunks, errs := a.Chunks(context.Background())
	got, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestFactoryPicksAdapterForEachShape(t *testing.T) {
	f := NewFactory()

	a, err := f.Create(&fakePullStream{})
	require.NoError(t, err)
	assert.IsType(t, &PullStreamAdapter{}, a)

	a, err = f.Create(&fakeEventStream{Reader: strings.NewReader("")})
	require.NoError(t, err)
	assert.IsType(t, &EventStreamAdapter{}, a)

	a, err = f.Create(&fakeSocket{})
	require.NoError(t, err)
	assert.IsType(t, &SocketAdapter{}, a)

	a, err = f.Create(&fakeAsyncSeq{})
	require.NoError(t, err)
	assert.IsType(t, &AsyncSequenceAdapter{}, a)
}

func TestFactoryRejectsUnsupportedSource(t *testing.T) {
	f := NewFactory()
	_, err := f.Create(42)
	assert.ErrorIs(t, err, ErrNoSuitableAdapter)
	_, err = f.Create(nil)
	assert.ErrorIs(t, err, ErrNoSuitableAdapter)
	_, err = f.Create(map[string]any{})
	assert.ErrorIs(t, err, ErrNoSuitableAdapter)
}

func TestLoadConfigValidatesStreamKind(t *testing.T) {
	_, err := LoadConfig([]byte(`
streams:
  - name: demo
    kind: not-a-real-kind
    url: https://example.com/stream
`))
	require.Error(t, err)
}

func TestLoadConfigAccepts(t *testing.T) {
	cfg, err := LoadConfig([]byte(`
streams:
  - name: demo
    kind: event-stream
    url: https://example.com/stream
`))
	require.NoError(t, err)
	require.Len(t, cfg.Streams, 1)
	assert.Equal(t, "demo", cfg.Streams[0].Name)
}
