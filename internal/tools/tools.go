package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"aria-access-backend/internal/types"
)

// Tool is one accessibility tool exposed at /api/tools/{id}/process. The
// returned value is marshalled to the client as-is; an error means the
// payload failed validation.
type Tool interface {
	Info() types.ToolInfo
	Process(ctx context.Context, sessionID string, payload json.RawMessage) (any, error)
}

// Registry maps tool ids to implementations, preserving registration order
// for listings.
type Registry struct {
	order []string
	byID  map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Tool)}
}

func (r *Registry) Register(id string, t Tool) {
	if _, ok := r.byID[id]; !ok {
		r.order = append(r.order, id)
	}
	r.byID[id] = t
}

func (r *Registry) Get(id string) (Tool, bool) {
	t, ok := r.byID[id]
	return t, ok
}

func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Infos() map[string]types.ToolInfo {
	out := make(map[string]types.ToolInfo, len(r.byID))
	for id, t := range r.byID {
		out[id] = t.Info()
	}
	return out
}

func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("request body is required")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
