package relay

import (
	"encoding/base64"
	"strings"
)

const (
	MIMETextPlain = "text/plain"
	MIMEAudioPCM  = "audio/pcm"
)

// Part is one content part of a live agent event. A part carries either
// text or an inline binary payload tagged with its MIME type.
type Part struct {
	Text string
	MIME string
	Data []byte
}

// Event is one item of a live agent's outbound stream. A turn-complete or
// interrupted status is terminal for its turn. Err terminates the stream.
type Event struct {
	TurnComplete bool
	Interrupted  bool
	Partial      bool
	Parts        []Part
	Err          error
}

// InboundMessage is a decoded client frame headed for the model: either a
// text message or a raw realtime audio chunk.
type InboundMessage struct {
	Text  string
	Audio []byte
	MIME  string
}

// Frame is one wire frame of the SSE protocol.
type Frame struct {
	TurnComplete *bool  `json:"turn_complete,omitempty"`
	Interrupted  *bool  `json:"interrupted,omitempty"`
	MIMEType     string `json:"mime_type,omitempty"`
	Data         string `json:"data,omitempty"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
}

// FrameFor translates one agent event into its wire frame. The second
// return is false when the event produces no frame: partial text chunks and
// events with no usable content are swallowed, only final text and non-empty
// audio reach the client.
func FrameFor(ev Event) (Frame, bool) {
	if ev.TurnComplete || ev.Interrupted {
		tc, ir := ev.TurnComplete, ev.Interrupted
		return Frame{TurnComplete: &tc, Interrupted: &ir}, true
	}
	if len(ev.Parts) == 0 {
		return Frame{}, false
	}
	p := ev.Parts[0]
	if strings.HasPrefix(p.MIME, MIMEAudioPCM) && len(p.Data) > 0 {
		return Frame{MIMEType: MIMEAudioPCM, Data: base64.StdEncoding.EncodeToString(p.Data)}, true
	}
	if p.Text != "" && !ev.Partial {
		return Frame{MIMEType: MIMETextPlain, Data: p.Text}, true
	}
	return Frame{}, false
}

const (
	ErrorQuotaExceeded   = "quota_exceeded"
	ErrorConnectionError = "connection_error"
)

var quotaKeywords = []string{"quota", "rate limit", "resource exhausted", "429"}

// ErrorFrame classifies a stream failure into the terminal frame sent to the
// client. Quota detection is a keyword heuristic on the error message; the
// upstream gives no structured signal for it.
func ErrorFrame(err error) Frame {
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, kw := range quotaKeywords {
		if strings.Contains(lower, kw) {
			return Frame{
				Error:    ErrorQuotaExceeded,
				Message:  msg,
				MIMEType: MIMETextPlain,
				Data:     "The assistant is temporarily unavailable because the usage quota was exceeded. Please try again in a few minutes.",
			}
		}
	}
	return Frame{
		Error:    ErrorConnectionError,
		Message:  msg,
		MIMEType: MIMETextPlain,
		Data:     "The assistant connection was lost. Please reconnect and try again.",
	}
}
