package service

import (
	"strings"

	"kanji-quiz-bot/internal/domain/entities"
)

// AnswerEvaluator compares a submitted free-text answer against the
// accepted answer set of a session. It is pure: all state transitions
// happen in the SessionManager after the call.
type AnswerEvaluator struct{}

// NewAnswerEvaluator creates a new AnswerEvaluator.
func NewAnswerEvaluator() *AnswerEvaluator {
	return &AnswerEvaluator{}
}

// Evaluate reports whether rawAnswer matches any accepted value for the
// session's effective mode. Matching is exact set membership after
// normalization; substrings and partial matches are not accepted.
func (e *AnswerEvaluator) Evaluate(s *entities.Session, rawAnswer string) bool {
	answer := Normalize(rawAnswer)
	if answer == "" {
		return false
	}

	for _, accepted := range s.Item.Accepted(s.EffectiveMode) {
		if Normalize(accepted) == answer {
			return true
		}
	}

	return false
}

// Normalize prepares a string for comparison: lowercase, trimmed, with
// internal whitespace runs collapsed to a single space. Romanization
// variants are not inferred here; the sheet provides them as separate
// accepted values.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
