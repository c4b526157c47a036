package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aria-access-backend/internal/normalize"
	"aria-access-backend/internal/store"
	"aria-access-backend/internal/types"
)

// FormInterpreter normalizes a free-text answer to a form question into a
// typed action. A clarify result is remembered per session so a bare
// follow-up answer can reuse the pending question.
type FormInterpreter struct {
	Generator normalize.Generator
	Memory    *store.MemoryStore
}

func (FormInterpreter) Info() types.ToolInfo {
	return types.ToolInfo{
		Name:        "Form Answer Interpreter",
		Description: "Normalize spoken form answers into typed field actions",
	}
}

func (t FormInterpreter) Process(ctx context.Context, sessionID string, payload json.RawMessage) (any, error) {
	var req types.InterpretRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	// A bare answer resumes the pending clarification, if one is live.
	if strings.TrimSpace(req.Question) == "" && t.Memory != nil {
		if p, ok := t.Memory.PendingClarification(sessionID); ok {
			req.Question = p.Question
			req.Type = p.Type
			req.Options = p.Options
		}
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Type) == "" {
		return nil, fmt.Errorf("question and type are required")
	}
	if strings.TrimSpace(req.UserText) == "" {
		return nil, fmt.Errorf("user_text is required")
	}
	if normalize.IsChoiceType(req.Type) && len(req.Options) == 0 {
		return nil, fmt.Errorf("options are required for question type %q", req.Type)
	}

	act, _, err := normalize.Normalize(ctx, t.Generator, req)
	if err != nil {
		var failure *normalize.Failure
		if errors.As(err, &failure) {
			return &types.InterpretResponse{
				Success: false,
				Error:   failure.Error(),
				Raw:     failure.Raw,
			}, nil
		}
		return nil, err
	}

	if err := normalize.ValidateChoices(act, req.Options); err != nil {
		return &types.InterpretResponse{
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	if t.Memory != nil {
		if act.Action == normalize.ActionClarify {
			t.Memory.SetPendingClarification(sessionID, store.PendingClarification{
				Question: req.Question,
				Type:     req.Type,
				Options:  req.Options,
				Prompt:   act.Prompt,
			})
		} else {
			t.Memory.ClearPendingClarification(sessionID)
		}
	}

	return &types.InterpretResponse{
		Success: true,
		Data:    act,
	}, nil
}
