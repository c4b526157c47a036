package normalize

import "fmt"

// Action kinds.
const (
	ActionSetText     = "set_text"
	ActionSelect      = "select"
	ActionMultiSelect = "multi_select"
	ActionClarify     = "clarify"
	ActionSpeak       = "speak"
)

// Form question types.
const (
	TypeText     = "text"
	TypeLongText = "long_text"
	TypeRadio    = "radio"
	TypeDropdown = "dropdown"
	TypeCheckbox = "checkbox"
)

// Action is the normalized form-answer contract returned to the extension.
// The populated fields depend on the kind: set_text carries NormalizedText,
// select/multi_select carry Choices, clarify carries Prompt, speak carries
// Text.
type Action struct {
	Action         string   `json:"action"`
	NormalizedText string   `json:"normalized_text,omitempty"`
	Choices        []string `json:"choices,omitempty"`
	Prompt         string   `json:"prompt,omitempty"`
	Text           string   `json:"text,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
}

// IsTextType reports whether the question type takes a free-text answer.
func IsTextType(questionType string) bool {
	return questionType == TypeText || questionType == TypeLongText
}

// IsChoiceType reports whether the question type takes option choices.
func IsChoiceType(questionType string) bool {
	switch questionType {
	case TypeRadio, TypeDropdown, TypeCheckbox:
		return true
	}
	return false
}

// expectedAction maps a question type to the committed action kind it must
// produce. Clarify is always an acceptable substitute.
func expectedAction(questionType string) string {
	switch questionType {
	case TypeRadio, TypeDropdown:
		return ActionSelect
	case TypeCheckbox:
		return ActionMultiSelect
	default:
		return ActionSetText
	}
}

// CheckAction verifies that the action kind matches the question type: a
// choice question must never receive set_text and vice versa.
func CheckAction(act Action, questionType string) error {
	if act.Action == ActionClarify {
		return nil
	}
	want := expectedAction(questionType)
	if act.Action != want {
		return fmt.Errorf("action %q does not match question type %q (want %q)", act.Action, questionType, want)
	}
	return nil
}

// ValidateChoices re-checks a select/multi_select action against the
// caller-supplied options: every choice must exactly match an option, a
// select carries at least one choice, and a multi_select has no duplicates.
func ValidateChoices(act Action, options []string) error {
	if act.Action != ActionSelect && act.Action != ActionMultiSelect {
		return nil
	}
	if len(act.Choices) == 0 {
		return fmt.Errorf("%s action carries no choices", act.Action)
	}
	allowed := make(map[string]bool, len(options))
	for _, o := range options {
		allowed[o] = true
	}
	seen := make(map[string]bool, len(act.Choices))
	for _, c := range act.Choices {
		if !allowed[c] {
			return fmt.Errorf("choice %q does not match any option", c)
		}
		if seen[c] {
			return fmt.Errorf("duplicate choice %q", c)
		}
		seen[c] = true
	}
	return nil
}
