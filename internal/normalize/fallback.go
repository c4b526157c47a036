package normalize

import (
	"regexp"
	"strings"
)

// Rule-based extraction used when the model's output is unusable. Only
// free-text questions have a fallback; choice questions fail structurally.

const (
	confidencePattern   = 0.9
	confidenceRecovered = 0.85
	confidencePhone     = 0.85
	confidenceGuess     = 0.7
	confidenceRaw       = 0.6
)

var (
	// introduction phrases followed by a bounded run of name characters
	namePattern  = regexp.MustCompile(`(?i)\b(?:my name(?:'s|’s| is)|i am|i'm|i’m|it's|it’s|it is|this is|call me)\s+([A-Za-z'’\- ]{1,60})`)
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// candidate runs of digits with tolerated separators; verified to hold
	// at least 8 digits before acceptance
	phonePattern = regexp.MustCompile(`[+(]?[0-9][0-9 ().\-]{6,}[0-9]`)

	phoneKeywords = []string{"phone", "mobile", "telephone"}
)

// FallbackAction derives a typed action from the raw user text, keyed on the
// question wording. recovered marks the path where the model call itself
// failed; it lowers the name-pattern confidence.
func FallbackAction(question, userText string, recovered bool) Action {
	q := strings.ToLower(question)
	text := strings.TrimSpace(userText)

	switch {
	case strings.Contains(q, "name"):
		return nameAction(text, recovered)
	case strings.Contains(q, "email"):
		if addr := emailPattern.FindString(text); addr != "" {
			return Action{Action: ActionSetText, NormalizedText: addr, Confidence: confidencePattern}
		}
		return rawAction(text)
	case containsAny(q, phoneKeywords):
		if number := findPhone(text); number != "" {
			return Action{Action: ActionSetText, NormalizedText: number, Confidence: confidencePhone}
		}
		return rawAction(text)
	default:
		return rawAction(text)
	}
}

func nameAction(text string, recovered bool) Action {
	if m := namePattern.FindStringSubmatch(text); m != nil {
		conf := confidencePattern
		if recovered {
			conf = confidenceRecovered
		}
		return Action{Action: ActionSetText, NormalizedText: titleWords(m[1]), Confidence: conf}
	}
	// 1-3 bare words read as a best-effort name guess
	if words := strings.Fields(text); len(words) >= 1 && len(words) <= 3 {
		return Action{Action: ActionSetText, NormalizedText: titleWords(text), Confidence: confidenceGuess}
	}
	return rawAction(text)
}

func rawAction(text string) Action {
	return Action{Action: ActionSetText, NormalizedText: text, Confidence: confidenceRaw}
}

func findPhone(text string) string {
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		if digitCount(candidate) >= 8 {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// titleWords title-cases each word of a captured name.
func titleWords(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		lower := strings.ToLower(w)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
