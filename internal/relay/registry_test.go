package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStream struct {
	mu       sync.Mutex
	sent     []InboundMessage
	events   chan Event
	closed   int
	sendErr  error
	closeErr error
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan Event, 32)}
}

func (f *fakeStream) Send(msg InboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeStream) Events() <-chan Event { return f.events }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeStream) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeStream) sentMessages() []InboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]InboundMessage(nil), f.sent...)
}

// fakeOpener hands out a fresh fakeStream per call and remembers them all.
type fakeOpener struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
}

func (o *fakeOpener) open(ctx context.Context, kind string) (LiveStream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := newFakeStream()
	o.streams = append(o.streams, s)
	return s, nil
}

func (o *fakeOpener) opened() []*fakeStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeStream(nil), o.streams...)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "u1", Key("u1", KindSpeech))
	assert.Equal(t, "u1", Key("u1", ""))
	assert.Equal(t, "search_u1", Key("u1", KindSearch))
}

func TestRegistryCreateAndGet(t *testing.T) {
	op := &fakeOpener{}
	r := NewRegistry(op.open, zap.NewNop())

	sess, err := r.Create(context.Background(), "u1", KindSpeech)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u1", sess.Key)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("u1", KindSpeech)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = r.Get("u1", KindSearch)
	assert.False(t, ok)
}

func TestRegistryCreateOpenError(t *testing.T) {
	op := &fakeOpener{err: errors.New("upstream down")}
	r := NewRegistry(op.open, zap.NewNop())

	_, err := r.Create(context.Background(), "u1", KindSpeech)
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryReplaceClosesOldSession(t *testing.T) {
	op := &fakeOpener{}
	r := NewRegistry(op.open, zap.NewNop())

	first, err := r.Create(context.Background(), "u1", KindSpeech)
	require.NoError(t, err)
	second, err := r.Create(context.Background(), "u1", KindSpeech)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, first.Stream.(*fakeStream).closeCount())
	assert.Equal(t, 0, second.Stream.(*fakeStream).closeCount())

	got, ok := r.Get("u1", KindSpeech)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryReleaseStaleKeepsNewSession(t *testing.T) {
	op := &fakeOpener{}
	r := NewRegistry(op.open, zap.NewNop())

	stale, err := r.Create(context.Background(), "u1", KindSearch)
	require.NoError(t, err)
	fresh, err := r.Create(context.Background(), "u1", KindSearch)
	require.NoError(t, err)

	// The handler for the stale session finishes after the reconnect; the
	// fresh session must survive it.
	r.Release(stale)
	assert.Equal(t, 1, r.Len())
	got, ok := r.Get("u1", KindSearch)
	require.True(t, ok)
	assert.Same(t, fresh, got)

	r.Release(fresh)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryReleaseNil(t *testing.T) {
	r := NewRegistry((&fakeOpener{}).open, zap.NewNop())
	r.Release(nil)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	op := &fakeOpener{}
	r := NewRegistry(op.open, zap.NewNop())

	sess, err := r.Create(context.Background(), "u1", KindSpeech)
	require.NoError(t, err)

	r.Remove("u1", KindSpeech)
	r.Remove("u1", KindSpeech)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, sess.Stream.(*fakeStream).closeCount())
}

func TestRegistryCloseAllSurvivesCloseErrors(t *testing.T) {
	op := &fakeOpener{}
	r := NewRegistry(op.open, zap.NewNop())

	a, err := r.Create(context.Background(), "u1", KindSpeech)
	require.NoError(t, err)
	_, err = r.Create(context.Background(), "u2", KindSearch)
	require.NoError(t, err)

	a.Stream.(*fakeStream).closeErr = errors.New("already gone")

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	for _, s := range op.opened() {
		assert.Equal(t, 1, s.closeCount())
	}
}
