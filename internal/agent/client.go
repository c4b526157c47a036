package agent

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"aria-access-backend/internal/relay"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 300
	maxHistory         = 40
)

// Options configures the model client.
type Options struct {
	Model       string
	STTModel    string
	IdleTimeout time.Duration
}

// Client wraps the hosted language model behind the two capabilities the
// relay consumes: a synchronous Generate and a live session opener. Agent
// internals stay opaque to callers.
type Client struct {
	api      *openai.Client
	profiles *ProfileSet
	opts     Options
	log      *zap.Logger
}

func NewClient(apiKey string, profiles *ProfileSet, opts Options, log *zap.Logger) *Client {
	return &Client{
		api:      openai.NewClient(apiKey),
		profiles: profiles,
		opts:     opts,
		log:      log,
	}
}

// Generate sends one prompt through the named profile and returns the raw
// model text.
func (c *Client) Generate(ctx context.Context, profile, prompt string) (string, error) {
	p, ok := c.profiles.Get(profile)
	if !ok {
		return "", fmt.Errorf("unknown agent profile: %s", profile)
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Temperature: temperatureFor(p),
		MaxTokens:   maxTokensFor(p),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenLive starts a live session for a session kind (or a profile name,
// which one-shot invocations use directly).
func (c *Client) OpenLive(_ context.Context, kind string) (relay.LiveStream, error) {
	name := kind
	switch kind {
	case relay.KindSpeech:
		name = ProfileSpeechCommands
	case relay.KindSearch:
		name = ProfileWebsiteSearch
	}
	p, ok := c.profiles.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown agent profile: %s", name)
	}
	return newLiveSession(c, p), nil
}

// Opener adapts the client to the relay's opener contract.
func (c *Client) Opener() relay.Opener { return c.OpenLive }

// transcribe turns an opaque audio chunk into text. The payload is handed
// to the model's transcription endpoint as-is.
func (c *Client) transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.opts.STTModel,
		Reader:   bytes.NewReader(audio),
		FilePath: "input.wav",
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func temperatureFor(p Profile) float32 {
	if p.Temperature <= 0 {
		return defaultTemperature
	}
	return p.Temperature
}

func maxTokensFor(p Profile) int {
	if p.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return p.MaxTokens
}
