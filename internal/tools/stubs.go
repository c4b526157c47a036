package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aria-access-backend/internal/store"
	"aria-access-backend/internal/types"
)

// Placeholder tools: they validate their input and echo it back. The real
// processing happens in the extension or is not built yet.

const statusPlaceholder = "ready_for_implementation"

type TextToSpeech struct{}

func (TextToSpeech) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "Text-to-Speech",
		Description: "Read page text aloud",
	}
}

func (TextToSpeech) Process(_ context.Context, _ string, payload json.RawMessage) (any, error) {
	var req struct {
		Text  string `json:"text"`
		Voice string `json:"voice,omitempty"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	return &types.ToolResponse{
		Success: true,
		Message: "Text-to-Speech tool processed successfully",
		Data:    map[string]any{"text": req.Text, "voice": req.Voice, "status": statusPlaceholder},
	}, nil
}

type AIAltText struct{}

func (AIAltText) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "AI Alt Text Generation",
		Description: "Generate alt text for images without descriptions",
	}
}

func (AIAltText) Process(_ context.Context, _ string, payload json.RawMessage) (any, error) {
	var req struct {
		ImageData string `json:"image_data"`
		PageURL   string `json:"page_url,omitempty"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ImageData) == "" {
		return nil, fmt.Errorf("image_data is required")
	}
	return &types.ToolResponse{
		Success: true,
		Message: "AI Alt Text tool processed successfully",
		Data:    map[string]any{"image_data": req.ImageData, "status": statusPlaceholder},
	}, nil
}

// AdaptiveCSS adjusts page CSS for readability. Still a placeholder, but the
// user's preference blob is persisted per session so later calls can omit it.
type AdaptiveCSS struct {
	Prefs *store.FilePreferencesStore
}

func (AdaptiveCSS) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "Adaptive CSS Adjustments for Readability",
		Description: "Adjust CSS for better readability based on user needs",
	}
}

func (t AdaptiveCSS) Process(_ context.Context, sessionID string, payload json.RawMessage) (any, error) {
	var req struct {
		CSSRules        string            `json:"css_rules"`
		UserPreferences store.Preferences `json:"user_preferences,omitempty"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CSSRules) == "" {
		return nil, fmt.Errorf("css_rules is required")
	}

	prefs := req.UserPreferences
	if t.Prefs != nil {
		if len(prefs) > 0 {
			if err := t.Prefs.Write(sessionID, prefs); err != nil {
				return nil, fmt.Errorf("failed to store preferences: %w", err)
			}
		} else if stored, err := t.Prefs.Read(sessionID); err == nil && stored != nil {
			prefs = stored
		}
	}
	if prefs == nil {
		prefs = store.Preferences{}
	}
	return &types.ToolResponse{
		Success: true,
		Message: "Adaptive CSS tool processed successfully",
		Data:    map[string]any{"css_rules": req.CSSRules, "preferences": prefs, "status": statusPlaceholder},
	}, nil
}

type SemanticSearch struct{}

func (SemanticSearch) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "Semantic Search",
		Description: "Search page content by meaning, not keywords",
	}
}

func (SemanticSearch) Process(_ context.Context, _ string, payload json.RawMessage) (any, error) {
	var req struct {
		Query   string `json:"query"`
		Content string `json:"content,omitempty"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	return &types.ToolResponse{
		Success: true,
		Message: "Semantic Search tool processed successfully",
		Data:    map[string]any{"query": req.Query, "status": statusPlaceholder},
	}, nil
}

type TextSimplification struct{}

func (TextSimplification) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "Text Simplification",
		Description: "Rewrite page text in plainer language",
	}
}

func (TextSimplification) Process(_ context.Context, _ string, payload json.RawMessage) (any, error) {
	var req struct {
		Text  string `json:"text"`
		Level string `json:"level,omitempty"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	return &types.ToolResponse{
		Success: true,
		Message: "Text Simplification tool processed successfully",
		Data:    map[string]any{"text": req.Text, "level": req.Level, "status": statusPlaceholder},
	}, nil
}
