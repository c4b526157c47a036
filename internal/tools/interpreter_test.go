package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria-access-backend/internal/normalize"
	"aria-access-backend/internal/store"
	"aria-access-backend/internal/types"
)

func interpreterWith(gen normalize.Generator) (FormInterpreter, *store.MemoryStore) {
	memory := store.NewMemoryStore(40)
	return FormInterpreter{Generator: gen, Memory: memory}, memory
}

func modelSays(out string) normalize.Generator {
	return normalize.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return out, nil
	})
}

func interpret(t *testing.T, tool FormInterpreter, payload string) *types.InterpretResponse {
	t.Helper()
	got, err := tool.Process(context.Background(), "s1", json.RawMessage(payload))
	require.NoError(t, err)
	resp, ok := got.(*types.InterpretResponse)
	require.True(t, ok)
	return resp
}

func TestFormInterpreterSetText(t *testing.T) {
	tool, _ := interpreterWith(modelSays(`{"action":"set_text","normalized_text":"Abe","confidence":0.9}`))

	resp := interpret(t, tool, `{"question":"What is your name?","type":"text","user_text":"my name's abe"}`)
	require.True(t, resp.Success)
	act, ok := resp.Data.(normalize.Action)
	require.True(t, ok)
	assert.Equal(t, "set_text", act.Action)
	assert.Equal(t, "Abe", act.NormalizedText)
}

func TestFormInterpreterInvalidModelOutputOnChoice(t *testing.T) {
	tool, _ := interpreterWith(modelSays("no json here"))

	resp := interpret(t, tool, `{"question":"Pick one","type":"radio","options":["A","B"],"user_text":"the first"}`)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid JSON")
	assert.Equal(t, "no json here", resp.Raw)
}

func TestFormInterpreterRequestErrorPassesThrough(t *testing.T) {
	gen := normalize.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream timeout")
	})
	tool, _ := interpreterWith(gen)

	resp := interpret(t, tool, `{"question":"Pick one","type":"radio","options":["A","B"],"user_text":"the first"}`)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "request failed")
}

func TestFormInterpreterRejectsUnknownChoice(t *testing.T) {
	tool, _ := interpreterWith(modelSays(`{"action":"select","choices":["C"]}`))

	resp := interpret(t, tool, `{"question":"Pick one","type":"radio","options":["A","B"],"user_text":"c please"}`)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, `"C"`)
}

func TestFormInterpreterClarifyRoundTrip(t *testing.T) {
	tool, memory := interpreterWith(modelSays(`{"action":"clarify","prompt":"A or B?","confidence":0.5}`))

	resp := interpret(t, tool, `{"question":"Pick one","type":"radio","options":["A","B"],"user_text":"hmm"}`)
	require.True(t, resp.Success)
	act := resp.Data.(normalize.Action)
	assert.Equal(t, normalize.ActionClarify, act.Action)

	pending, ok := memory.PendingClarification("s1")
	require.True(t, ok)
	assert.Equal(t, "Pick one", pending.Question)
	assert.Equal(t, []string{"A", "B"}, pending.Options)

	// the bare follow-up resumes the stored question
	tool.Generator = modelSays(`{"action":"select","choices":["B"]}`)
	resp = interpret(t, tool, `{"user_text":"the second one"}`)
	require.True(t, resp.Success)
	act = resp.Data.(normalize.Action)
	assert.Equal(t, []string{"B"}, act.Choices)

	_, ok = memory.PendingClarification("s1")
	assert.False(t, ok, "resolved clarification should be cleared")
}

func TestFormInterpreterValidation(t *testing.T) {
	tool, _ := interpreterWith(modelSays("unused"))

	cases := []string{
		`{"type":"text","user_text":"x"}`,
		`{"question":"Q","user_text":"x"}`,
		`{"question":"Q","type":"text"}`,
		`{"question":"Q","type":"radio","user_text":"x"}`,
	}
	for _, payload := range cases {
		_, err := tool.Process(context.Background(), "s1", json.RawMessage(payload))
		assert.Error(t, err, payload)
	}
}
