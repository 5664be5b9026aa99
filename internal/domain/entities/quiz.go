package entities

import "time"

// QuizItem is one row of the user's linked sheet: a kanji together with
// the accepted answers for each quiz mode. Immutable once drawn.
type QuizItem struct {
	Kanji    string
	Readings []string
	Meanings []string
}

// Accepted returns the accepted answer set for a concrete mode.
// ModeRandom must be resolved before calling.
func (i QuizItem) Accepted(mode QuizMode) []string {
	if mode == ModeReading {
		return i.Readings
	}
	return i.Meanings
}

// Session is the record of one outstanding question awaiting an answer or
// expiry. At most one live session exists per user; its presence in the
// session manager's live set is what the "awaiting answer" state means, and
// removal is closing. EffectiveMode is always reading or meaning: ModeRandom
// is resolved once at open time and fixed for the session's lifetime.
type Session struct {
	UserID        int64
	ChatID        int64
	Item          QuizItem
	EffectiveMode QuizMode
	OpenedAt      time.Time
	Deadline      *time.Time // nil when the user's timeout is 0
}

// NewSession opens a session for cfg's user with the already-resolved mode.
func NewSession(cfg *UserConfig, item QuizItem, mode QuizMode, now time.Time) *Session {
	s := &Session{
		UserID:        cfg.UserID,
		ChatID:        cfg.ChatID,
		Item:          item,
		EffectiveMode: mode,
		OpenedAt:      now,
	}

	if cfg.TimeoutMinutes > 0 {
		deadline := now.Add(time.Duration(cfg.TimeoutMinutes) * time.Minute)
		s.Deadline = &deadline
	}

	return s
}

// Expired reports whether the session's deadline has passed.
// Sessions without a deadline never expire.
func (s *Session) Expired(now time.Time) bool {
	return s.Deadline != nil && !now.Before(*s.Deadline)
}
