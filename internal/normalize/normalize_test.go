package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria-access-backend/internal/types"
)

func fixedGenerator(out string) Generator {
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return out, nil
	})
}

func failingGenerator(err error) Generator {
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", err
	})
}

func textReq(question, userText string) types.InterpretRequest {
	return types.InterpretRequest{Question: question, Type: TypeText, UserText: userText}
}

func radioReq(userText string) types.InterpretRequest {
	return types.InterpretRequest{
		Question: "Pick an option",
		Type:     TypeRadio,
		Options:  []string{"Option A", "Option B"},
		UserText: userText,
	}
}

func TestNormalizeStrictParse(t *testing.T) {
	gen := fixedGenerator(`{"action":"set_text","normalized_text":"Abe","confidence":0.9}`)
	act, outcome, err := Normalize(context.Background(), gen, textReq("What is your name?", "my name's abe"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeParsed, outcome)
	assert.Equal(t, ActionSetText, act.Action)
	assert.Equal(t, "Abe", act.NormalizedText)
}

func TestNormalizeSalvagesWrappedJSON(t *testing.T) {
	gen := fixedGenerator("Sure! Here is the action:\n```json\n{\"action\":\"select\",\"choices\":[\"Option B\"]}\n```\nLet me know.")
	act, outcome, err := Normalize(context.Background(), gen, radioReq("probably b"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSalvaged, outcome)
	assert.Equal(t, ActionSelect, act.Action)
	assert.Equal(t, []string{"Option B"}, act.Choices)
}

func TestNormalizeRejectsMismatchedActionKind(t *testing.T) {
	// set_text against a radio question is never accepted, even as valid JSON
	gen := fixedGenerator(`{"action":"set_text","normalized_text":"probably b","confidence":0.9}`)
	_, outcome, err := Normalize(context.Background(), gen, radioReq("probably b"))
	assert.Equal(t, OutcomeFailed, outcome)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailureInvalidJSON, failure.Kind)
}

func TestNormalizeClarifyAllowedOnChoiceQuestion(t *testing.T) {
	gen := fixedGenerator(`{"action":"clarify","prompt":"Did you mean Option A or Option B?","confidence":0.5}`)
	act, outcome, err := Normalize(context.Background(), gen, radioReq("the second one maybe"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeParsed, outcome)
	assert.Equal(t, ActionClarify, act.Action)
	assert.NotEmpty(t, act.Prompt)
}

func TestNormalizeGarbageOnTextFallsBack(t *testing.T) {
	gen := fixedGenerator("I think the user said their name is Abe.")
	act, outcome, err := Normalize(context.Background(), gen, textReq("What is your name?", "my name's abe"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, outcome)
	assert.Equal(t, ActionSetText, act.Action)
	assert.Equal(t, "Abe", act.NormalizedText)
	assert.InDelta(t, 0.9, act.Confidence, 1e-9)
}

func TestNormalizeGarbageOnChoiceFails(t *testing.T) {
	gen := fixedGenerator("the user probably wants option b")
	_, outcome, err := Normalize(context.Background(), gen, radioReq("probably b"))
	assert.Equal(t, OutcomeFailed, outcome)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailureInvalidJSON, failure.Kind)
	assert.Equal(t, "the user probably wants option b", failure.Raw)
}

func TestNormalizeRequestErrorOnTextFallsBack(t *testing.T) {
	gen := failingGenerator(errors.New("upstream timeout"))
	act, outcome, err := Normalize(context.Background(), gen, textReq("What is your name?", "my name is abe"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, outcome)
	assert.InDelta(t, 0.85, act.Confidence, 1e-9)
}

func TestNormalizeRequestErrorOnChoiceFails(t *testing.T) {
	cause := errors.New("upstream timeout")
	gen := failingGenerator(cause)
	_, outcome, err := Normalize(context.Background(), gen, radioReq("probably b"))
	assert.Equal(t, OutcomeFailed, outcome)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailureRequestError, failure.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestCheckAction(t *testing.T) {
	assert.NoError(t, CheckAction(Action{Action: ActionSetText}, TypeText))
	assert.NoError(t, CheckAction(Action{Action: ActionSelect}, TypeDropdown))
	assert.NoError(t, CheckAction(Action{Action: ActionMultiSelect}, TypeCheckbox))
	assert.NoError(t, CheckAction(Action{Action: ActionClarify}, TypeRadio))
	assert.Error(t, CheckAction(Action{Action: ActionSetText}, TypeRadio))
	assert.Error(t, CheckAction(Action{Action: ActionSelect}, TypeText))
	assert.Error(t, CheckAction(Action{Action: ActionSelect}, TypeCheckbox))
}

func TestValidateChoices(t *testing.T) {
	options := []string{"Red", "Green", "Blue"}

	assert.NoError(t, ValidateChoices(Action{Action: ActionSelect, Choices: []string{"Red"}}, options))
	assert.NoError(t, ValidateChoices(Action{Action: ActionMultiSelect, Choices: []string{"Red", "Blue"}}, options))
	assert.NoError(t, ValidateChoices(Action{Action: ActionSetText, NormalizedText: "x"}, options))

	assert.Error(t, ValidateChoices(Action{Action: ActionSelect}, options))
	assert.Error(t, ValidateChoices(Action{Action: ActionSelect, Choices: []string{"red"}}, options))
	assert.Error(t, ValidateChoices(Action{Action: ActionMultiSelect, Choices: []string{"Red", "Red"}}, options))
}

func TestActionJSONShape(t *testing.T) {
	b, err := json.Marshal(Action{Action: ActionSetText, NormalizedText: "Abe", Confidence: 0.9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"set_text","normalized_text":"Abe","confidence":0.9}`, string(b))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(types.InterpretRequest{
		Question: "Favorite color?",
		Type:     TypeRadio,
		Options:  []string{"Red", "Blue"},
		Context:  "signup form",
		UserText: "blue I guess",
	})
	assert.Contains(t, p, "Favorite color?")
	assert.Contains(t, p, "Red | Blue")
	assert.Contains(t, p, "signup form")
	assert.Contains(t, p, "blue I guess")
}
