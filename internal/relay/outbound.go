package relay

import (
	"context"

	"go.uber.org/zap"
)

const mirrorTextLimit = 200

// Translate consumes a live event stream and calls write once per eligible
// event until the stream ends, the client context is cancelled, or the
// upstream fails. On upstream failure it writes one terminal error frame and
// returns nil; the client always sees an explicit final frame. Session
// cleanup stays with the caller (scoped acquire/release around the stream).
func Translate(ctx context.Context, events <-chan Event, write func(Frame) error, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				frame := ErrorFrame(ev.Err)
				log.Warn("agent stream failed",
					zap.String("class", frame.Error),
					zap.Error(ev.Err))
				if err := write(frame); err != nil {
					return err
				}
				return nil
			}
			frame, emit := FrameFor(ev)
			if !emit {
				continue
			}
			mirrorFrame(log, frame)
			if err := write(frame); err != nil {
				return err
			}
		}
	}
}

// mirrorFrame logs each emitted frame. Audio payloads are reduced to their
// size and text is truncated to keep the log bounded.
func mirrorFrame(log *zap.Logger, f Frame) {
	switch {
	case f.TurnComplete != nil:
		log.Info("frame",
			zap.Bool("turn_complete", *f.TurnComplete),
			zap.Bool("interrupted", *f.Interrupted))
	case f.MIMEType == MIMEAudioPCM:
		log.Info("frame",
			zap.String("mime_type", f.MIMEType),
			zap.Int("base64_len", len(f.Data)))
	default:
		log.Info("frame",
			zap.String("mime_type", f.MIMEType),
			zap.String("data", truncate(f.Data, mirrorTextLimit)))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
