package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"aria-access-backend/internal/relay"
)

const (
	inboundBuffer = 16
	eventBuffer   = 32
)

// liveSession implements relay.LiveStream over the chat-completion stream
// API. A producer goroutine consumes the inbound channel one message at a
// time and emits relay events: partial deltas while the model streams, one
// final text event per turn, then a turn-complete status. An inbound
// message arriving mid-turn cancels the running stream and emits an
// interrupted status before the new turn starts (barge-in).
type liveSession struct {
	client  *Client
	profile Profile
	ctx     context.Context
	cancel  context.CancelFunc

	in      chan relay.InboundMessage
	events  chan relay.Event
	pending *relay.InboundMessage
	history []openai.ChatCompletionMessage

	closeOnce sync.Once
}

func newLiveSession(c *Client, p Profile) *liveSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &liveSession{
		client:  c,
		profile: p,
		ctx:     ctx,
		cancel:  cancel,
		in:      make(chan relay.InboundMessage, inboundBuffer),
		events:  make(chan relay.Event, eventBuffer),
	}
	go s.loop()
	return s
}

func (s *liveSession) Events() <-chan relay.Event { return s.events }

func (s *liveSession) Send(msg relay.InboundMessage) error {
	if s.ctx.Err() != nil {
		return relay.ErrSessionClosed
	}
	select {
	case s.in <- msg:
		return nil
	case <-s.ctx.Done():
		return relay.ErrSessionClosed
	}
}

func (s *liveSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

func (s *liveSession) loop() {
	defer close(s.events)

	idle := s.client.opts.IdleTimeout
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		var msg relay.InboundMessage
		if s.pending != nil {
			msg, s.pending = *s.pending, nil
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				s.client.log.Info("live session idle timeout",
					zap.String("agent", s.profile.Name))
				return
			case m := <-s.in:
				msg = m
			}
		}

		if err := s.runTurn(msg); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.emit(relay.Event{Err: err})
			return
		}
	}
}

func (s *liveSession) emit(ev relay.Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *liveSession) runTurn(msg relay.InboundMessage) error {
	text := msg.Text
	if len(msg.Audio) > 0 {
		transcript, err := s.client.transcribe(s.ctx, msg.Audio)
		if err != nil {
			return err
		}
		text = transcript
	}
	// An empty turn (blank text, or audio that transcribed to nothing) still
	// terminates: consumers wait on a turn status and must not hang.
	if strings.TrimSpace(text) == "" {
		s.emit(relay.Event{TurnComplete: true})
		return nil
	}

	s.history = append(s.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	s.trimHistory()

	turnCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(s.history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.profile.System,
	})
	messages = append(messages, s.history...)

	stream, err := s.client.api.CreateChatCompletionStream(turnCtx, openai.ChatCompletionRequest{
		Model:       s.client.opts.Model,
		Temperature: temperatureFor(s.profile),
		Messages:    messages,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	var b strings.Builder
	interrupted := false
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta != "" {
			b.WriteString(delta)
			s.emit(relay.Event{Partial: true, Parts: []relay.Part{{Text: delta}}})
		}
		// barge-in: a waiting inbound message preempts the running turn
		select {
		case m := <-s.in:
			s.pending = &m
			interrupted = true
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}
		if interrupted {
			break
		}
	}

	if interrupted {
		s.emit(relay.Event{Interrupted: true})
		return nil
	}

	final := b.String()
	if strings.TrimSpace(final) != "" {
		s.history = append(s.history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: final,
		})
		s.emit(relay.Event{Parts: []relay.Part{{Text: final}}})
	}
	s.emit(relay.Event{TurnComplete: true})
	return nil
}

func (s *liveSession) trimHistory() {
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}
