package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"aria-access-backend/internal/relay"
	"aria-access-backend/internal/store"
	"aria-access-backend/internal/types"
)

// SpeechToInstructions drives one full speech-commands turn synchronously:
// the command (spoken or typed) goes through a transient live session with
// bounded retry and the aggregated reply comes back as structured data.
type SpeechToInstructions struct {
	Invoker *relay.Invoker
	Memory  *store.MemoryStore
}

func (SpeechToInstructions) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "Speech-to-Instructions Navigation",
		Description: "Convert speech to navigation instructions",
	}
}

func (t SpeechToInstructions) Process(ctx context.Context, sessionID string, payload json.RawMessage) (any, error) {
	var req types.SpeechCommandRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if req.AudioData != "" && req.TextCommand != "" {
		return nil, fmt.Errorf("provide either audio_data or text_command, not both")
	}

	var msg relay.InboundMessage
	switch {
	case req.AudioData != "":
		raw, err := base64.StdEncoding.DecodeString(req.AudioData)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 audio_data: %w", err)
		}
		msg = relay.InboundMessage{Audio: raw, MIME: relay.MIMEAudioPCM}
	case req.TextCommand != "":
		msg = relay.InboundMessage{Text: req.TextCommand}
	default:
		return nil, relay.ErrMissingInput
	}

	result := t.Invoker.Run(ctx, relay.KindSpeech, msg)

	if t.Memory != nil {
		command := req.TextCommand
		if command == "" {
			command = "<audio command>"
		}
		t.Memory.Append(sessionID, store.Message{Role: "user", Content: command})
		if result.Success {
			if reply, ok := result.Data["response"].(string); ok {
				t.Memory.Append(sessionID, store.Message{Role: "assistant", Content: reply})
			}
		}
	}

	return &types.ToolResponse{
		Success: result.Success,
		Message: result.Message,
		Data:    result.Data,
	}, nil
}
