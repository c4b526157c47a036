package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const oneShotAttempts = 5

var ErrMissingInput = errors.New("either audio data or a text command is required")

// Result is the outcome of a one-shot agent invocation.
type Result struct {
	Success bool
	Message string
	Data    map[string]any
}

// Invoker drives a transient live session through one full turn and returns
// the aggregated final text, retrying with doubling backoff on upstream
// failure. Exhaustion yields a failure result, never a raised error.
type Invoker struct {
	open  Opener
	log   *zap.Logger
	base  time.Duration
	sleep func(time.Duration)
}

func NewInvoker(open Opener, log *zap.Logger) *Invoker {
	return &Invoker{
		open:  open,
		log:   log,
		base:  time.Second,
		sleep: time.Sleep,
	}
}

// Run sends one input into a fresh session, drains events until the turn
// completes, and normalizes the aggregate: JSON is returned as structured
// data, anything else under a "response" key.
func (iv *Invoker) Run(ctx context.Context, kind string, msg InboundMessage) Result {
	if msg.Text == "" && len(msg.Audio) == 0 {
		return Result{Success: false, Message: ErrMissingInput.Error()}
	}

	var lastErr error
	for attempt := 0; attempt < oneShotAttempts; attempt++ {
		if attempt > 0 {
			iv.sleep(iv.base << (attempt - 1))
		}
		text, err := iv.runOnce(ctx, kind, msg)
		if err != nil {
			lastErr = err
			iv.log.Warn("one-shot attempt failed",
				zap.String("kind", kind),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return Result{Success: true, Message: "command processed", Data: decodeAggregate(text)}
	}
	return Result{Success: false, Message: lastErr.Error()}
}

// runOnce owns one transient session for exactly one turn. The session is
// closed on every exit path.
func (iv *Invoker) runOnce(ctx context.Context, kind string, msg InboundMessage) (string, error) {
	stream, err := iv.open(ctx, kind)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			iv.log.Warn("transient session close failed", zap.Error(cerr))
		}
	}()

	if err := stream.Send(msg); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-stream.Events():
			if !ok {
				return "", errors.New("agent stream ended before turn completion")
			}
			if ev.Err != nil {
				return "", ev.Err
			}
			if ev.TurnComplete {
				return b.String(), nil
			}
			if ev.Partial {
				continue
			}
			for _, p := range ev.Parts {
				b.WriteString(p.Text)
			}
		}
	}
}

func decodeAggregate(text string) map[string]any {
	var structured map[string]any
	if err := json.Unmarshal([]byte(text), &structured); err == nil {
		return structured
	}
	return map[string]any{"response": text}
}
