package relay

import (
	"encoding/base64"
	"fmt"

	"aria-access-backend/internal/types"
)

// UnsupportedMIMEError reports an inbound frame whose MIME type the relay
// does not accept.
type UnsupportedMIMEError struct {
	MIME string
}

func (e *UnsupportedMIMEError) Error() string {
	return fmt.Sprintf("unsupported mime type: %s", e.MIME)
}

// DecodeError reports a malformed base64 audio payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid base64 audio payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode validates a wire message and converts it into its session form.
// Audio payloads are base64-decoded; a bad encoding is a DecodeError, never
// a silently empty chunk.
func Decode(msg types.InboundMessage) (InboundMessage, error) {
	switch msg.MIMEType {
	case MIMETextPlain:
		return InboundMessage{Text: msg.Data}, nil
	case MIMEAudioPCM:
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return InboundMessage{}, &DecodeError{Err: err}
		}
		return InboundMessage{Audio: raw, MIME: msg.MIMEType}, nil
	default:
		return InboundMessage{}, &UnsupportedMIMEError{MIME: msg.MIMEType}
	}
}

// Dispatch validates a client frame and forwards it into the live session
// for (userID, kind). The message is validated before the session lookup so
// a bad frame never reaches the inbound channel.
func (r *Registry) Dispatch(userID, kind string, msg types.InboundMessage) error {
	decoded, err := Decode(msg)
	if err != nil {
		return err
	}
	sess, ok := r.Get(userID, kind)
	if !ok {
		return ErrNoSession
	}
	return sess.Stream.Send(decoded)
}
