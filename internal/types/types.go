package types

// InboundMessage is one client-to-agent frame posted to an open live session.
// Data is plain text for "text/plain" and base64 for "audio/pcm".
type InboundMessage struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type SendResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ToolInfo describes one registered accessibility tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolResponse is the common envelope returned by tool processing.
type ToolResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// SpeechCommandRequest is the speech_to_instructions payload. Exactly one of
// AudioData (base64 PCM) or TextCommand must be provided.
type SpeechCommandRequest struct {
	AudioData   string `json:"audio_data,omitempty"`
	TextCommand string `json:"text_command,omitempty"`
}

// InterpretRequest is the form_interpreter payload: one form question plus
// the user's free-text answer.
type InterpretRequest struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	UserText string   `json:"user_text"`
	Context  string   `json:"context,omitempty"`
}

// InterpretResponse carries either a normalized action or a structured
// failure with the raw model text attached for diagnostics.
type InterpretResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Raw     string `json:"raw,omitempty"`
}
