package service

import (
	"testing"
	"time"

	"kanji-quiz-bot/internal/domain/entities"
)

func TestEvaluate(t *testing.T) {
	session := &entities.Session{
		UserID:        1,
		Item:          testItem(),
		EffectiveMode: entities.ModeReading,
		OpenedAt:      time.Now(),
	}
	meaningSession := &entities.Session{
		UserID:        1,
		Item:          testItem(),
		EffectiveMode: entities.ModeMeaning,
	}

	tests := []struct {
		name    string
		session *entities.Session
		answer  string
		want    bool
	}{
		{name: "exact reading", session: session, answer: "nichi", want: true},
		{name: "case variant", session: session, answer: "Jitsu", want: true},
		{name: "whitespace variant", session: session, answer: "  jitsu \n", want: true},
		{name: "no substring match", session: session, answer: "nichi-jitsu", want: false},
		{name: "no partial match", session: session, answer: "nich", want: false},
		{name: "meaning not accepted in reading mode", session: session, answer: "day", want: false},
		{name: "empty answer", session: session, answer: "   ", want: false},
		{name: "meaning mode accepts meaning", session: meaningSession, answer: "Sun", want: true},
		{name: "meaning mode rejects reading", session: meaningSession, answer: "nichi", want: false},
	}

	evaluator := NewAnswerEvaluator()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := evaluator.Evaluate(tc.session, tc.answer); got != tc.want {
				t.Fatalf("Evaluate(%q) = %t, want %t", tc.answer, got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "  Hello World  ", want: "hello world"},
		{input: "two\t spaces", want: "two spaces"},
		{input: "UPPER", want: "upper"},
		{input: "", want: ""},
	}

	for _, tc := range tests {
		if got := Normalize(tc.input); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
