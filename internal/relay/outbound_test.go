package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collectFrames(t *testing.T, events chan Event) []Frame {
	t.Helper()
	var frames []Frame
	err := Translate(context.Background(), events, func(f Frame) error {
		frames = append(frames, f)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)
	return frames
}

func TestTranslateOrderingAndFiltering(t *testing.T) {
	events := make(chan Event, 8)
	events <- Event{Partial: true, Parts: []Part{{Text: "hel"}}}
	events <- Event{Partial: true, Parts: []Part{{Text: "hello"}}}
	events <- Event{Parts: []Part{{Text: "hello there"}}}
	events <- Event{TurnComplete: true}
	close(events)

	frames := collectFrames(t, events)
	require.Len(t, frames, 2)
	assert.Equal(t, "hello there", frames[0].Data)
	require.NotNil(t, frames[1].TurnComplete)
	assert.True(t, *frames[1].TurnComplete)
}

func TestTranslateStreamEndWithoutError(t *testing.T) {
	events := make(chan Event)
	close(events)
	frames := collectFrames(t, events)
	assert.Empty(t, frames)
}

func TestTranslateUpstreamErrorEmitsTerminalFrame(t *testing.T) {
	events := make(chan Event, 2)
	events <- Event{Parts: []Part{{Text: "partial answer"}}}
	events <- Event{Err: errors.New("stream broke: rate limit")}

	frames := collectFrames(t, events)
	require.Len(t, frames, 2)
	assert.Equal(t, ErrorQuotaExceeded, frames[1].Error)
}

func TestTranslateContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := make(chan Event)

	err := Translate(ctx, events, func(Frame) error {
		t.Fatal("write called after cancellation")
		return nil
	}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranslateWriteFailureStops(t *testing.T) {
	events := make(chan Event, 3)
	events <- Event{Parts: []Part{{Text: "one"}}}
	events <- Event{Parts: []Part{{Text: "two"}}}
	close(events)

	wantErr := errors.New("client went away")
	calls := 0
	err := Translate(context.Background(), events, func(Frame) error {
		calls++
		return wantErr
	}, zap.NewNop())
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestTranslateWriteFailureOnErrorFrame(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{Err: errors.New("boom")}

	wantErr := errors.New("client went away")
	err := Translate(context.Background(), events, func(Frame) error {
		return wantErr
	}, zap.NewNop())
	assert.ErrorIs(t, err, wantErr)
}
