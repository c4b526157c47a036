package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aria-access-backend/internal/types"
)

// Outcome tags which stage of the pipeline produced the action.
type Outcome int

const (
	OutcomeParsed Outcome = iota
	OutcomeSalvaged
	OutcomeFallback
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeSalvaged:
		return "salvaged"
	case OutcomeFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// Failure kinds.
const (
	FailureInvalidJSON  = "invalid_json"
	FailureRequestError = "request_error"
)

// Failure is the structured terminal error of the pipeline, distinguishing
// unusable model output (raw text attached) from a failed model call.
type Failure struct {
	Kind string
	Raw  string
	Err  error
}

func (f *Failure) Error() string {
	if f.Kind == FailureInvalidJSON {
		return fmt.Sprintf("model returned invalid JSON: %q", f.Raw)
	}
	return fmt.Sprintf("model request failed: %v", f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Generator is the opaque one-shot language-model capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Normalize converts a free-text form answer into a typed action. Stages, in
// order: strict whole-string JSON parse of the model output, substring
// salvage between the first '{' and last '}', rule-based fallback (free-text
// questions only), structured failure. The pipeline never panics or lets a
// model error escape unclassified.
func Normalize(ctx context.Context, gen Generator, req types.InterpretRequest) (Action, Outcome, error) {
	raw, err := gen.Generate(ctx, BuildPrompt(req))
	if err != nil {
		if IsTextType(req.Type) {
			return FallbackAction(req.Question, req.UserText, true), OutcomeFallback, nil
		}
		return Action{}, OutcomeFailed, &Failure{Kind: FailureRequestError, Err: err}
	}

	if act, ok := parseAction(strings.TrimSpace(raw), req.Type); ok {
		return act, OutcomeParsed, nil
	}
	if act, ok := salvageAction(raw, req.Type); ok {
		return act, OutcomeSalvaged, nil
	}
	if IsTextType(req.Type) {
		return FallbackAction(req.Question, req.UserText, false), OutcomeFallback, nil
	}
	return Action{}, OutcomeFailed, &Failure{Kind: FailureInvalidJSON, Raw: raw}
}

func parseAction(raw, questionType string) (Action, bool) {
	var act Action
	if err := json.Unmarshal([]byte(raw), &act); err != nil {
		return Action{}, false
	}
	if act.Action == "" || CheckAction(act, questionType) != nil {
		return Action{}, false
	}
	return act, true
}

// salvageAction retries the parse on the substring between the first '{'
// and the last '}' of the raw response, recovering JSON the model wrapped
// in prose or markdown.
func salvageAction(raw, questionType string) (Action, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last <= first {
		return Action{}, false
	}
	return parseAction(raw[first:last+1], questionType)
}

// BuildPrompt embeds the question, its type, the allowed options, and the
// user's answer into the single-turn interpretation prompt. The profile's
// system prompt carries the output schema; this adds the instance data.
func BuildPrompt(req types.InterpretRequest) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(req.Question)
	b.WriteString("\nQuestion type: ")
	b.WriteString(req.Type)
	if len(req.Options) > 0 {
		b.WriteString("\nAllowed options (answers must match exactly): ")
		b.WriteString(strings.Join(req.Options, " | "))
	}
	if strings.TrimSpace(req.Context) != "" {
		b.WriteString("\nForm context: ")
		b.WriteString(req.Context)
	}
	b.WriteString("\nUser answer: ")
	b.WriteString(req.UserText)
	b.WriteString("\n\nRespond with the action as single-line JSON only, no markdown and no commentary. If confidence in a choice would be below 0.8, return a clarify action instead.")
	return b.String()
}
