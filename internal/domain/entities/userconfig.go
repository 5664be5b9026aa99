package entities

import (
	"fmt"
	"strings"
	"time"
)

// Validation bounds for user-supplied settings.
const (
	MinIntervalMinutes = 1
	MaxIntervalMinutes = 60
	MinTimeoutMinutes  = 0
	MaxTimeoutMinutes  = 1440

	DefaultIntervalMinutes = 30
	DefaultTimeoutMinutes  = 0 // 0 means the question never auto-expires
)

// ValidationError reports a rejected user-supplied setting value.
// The stored configuration is left unchanged when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// QuizMode selects which side of a quiz item the user is asked for.
type QuizMode string

const (
	ModeReading QuizMode = "reading"
	ModeMeaning QuizMode = "meaning"
	ModeRandom  QuizMode = "random"
)

// ParseQuizMode parses a user-supplied mode token.
func ParseQuizMode(s string) (QuizMode, error) {
	switch QuizMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeReading:
		return ModeReading, nil
	case ModeMeaning:
		return ModeMeaning, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", &ValidationError{Field: "mode", Reason: "must be reading, meaning or random"}
	}
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, &ValidationError{Field: "quiet hours", Reason: "time must be in HH:MM format"}
	}
	return TimeOfDay(parsed.Hour()*60 + parsed.Minute()), nil
}

// QuietWindow is a daily time-of-day window during which no automatic
// quiz is dispatched. The window may wrap past midnight (22:00-07:00).
// The zero value (Start == End) means no quiet hours are configured.
type QuietWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseQuietWindow parses "HH:MM-HH:MM".
func ParseQuietWindow(s string) (QuietWindow, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return QuietWindow{}, &ValidationError{Field: "quiet hours", Reason: "use HH:MM-HH:MM, e.g. 22:00-07:00"}
	}

	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return QuietWindow{}, err
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return QuietWindow{}, err
	}

	return QuietWindow{Start: start, End: end}, nil
}

// IsZero reports whether no quiet hours are configured.
func (w QuietWindow) IsZero() bool {
	return w.Start == w.End
}

// Contains reports whether t falls inside the half-open window [Start, End),
// handling windows that wrap past midnight.
func (w QuietWindow) Contains(t time.Time) bool {
	if w.IsZero() {
		return false
	}

	now := TimeOfDay(t.Hour()*60 + t.Minute())
	if w.Start < w.End {
		return now >= w.Start && now < w.End
	}
	return now >= w.Start || now < w.End
}

func (w QuietWindow) String() string {
	if w.IsZero() {
		return "not set"
	}
	return w.Start.String() + "-" + w.End.String()
}

// UserConfig stores per-user quiz configuration. Exactly one record exists
// per user; it is mutated only through validated settings commands.
type UserConfig struct {
	UserID          int64
	ChatID          int64
	IntervalMinutes int // minutes between automatic quizzes
	TimeoutMinutes  int // answer timeout, 0 disables expiry
	Quiet           QuietWindow
	Mode            QuizMode
	AutoEnabled     bool
	LastQuizAt      *time.Time // nil until the first question is sent
	SheetURL        string     // linked Google Sheet, empty until /setup
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUserConfig creates a configuration with default values.
func NewUserConfig(userID, chatID int64) *UserConfig {
	now := time.Now()
	return &UserConfig{
		UserID:          userID,
		ChatID:          chatID,
		IntervalMinutes: DefaultIntervalMinutes,
		TimeoutMinutes:  DefaultTimeoutMinutes,
		Mode:            ModeRandom,
		AutoEnabled:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks all fields against their allowed ranges.
func (c *UserConfig) Validate() error {
	if c.IntervalMinutes < MinIntervalMinutes || c.IntervalMinutes > MaxIntervalMinutes {
		return &ValidationError{
			Field:  "interval",
			Reason: fmt.Sprintf("must be between %d and %d minutes", MinIntervalMinutes, MaxIntervalMinutes),
		}
	}

	if c.TimeoutMinutes < MinTimeoutMinutes || c.TimeoutMinutes > MaxTimeoutMinutes {
		return &ValidationError{
			Field:  "timeout",
			Reason: fmt.Sprintf("must be between %d and %d minutes", MinTimeoutMinutes, MaxTimeoutMinutes),
		}
	}

	if _, err := ParseQuizMode(string(c.Mode)); err != nil {
		return err
	}

	return nil
}

// DueFor reports whether an automatic quiz should be dispatched at now.
// It checks the auto flag, sheet linkage, quiet hours and the interval
// elapsed since the last dispatched question. A user with no quiz history
// is immediately due.
func (c *UserConfig) DueFor(now time.Time) bool {
	if !c.AutoEnabled || c.SheetURL == "" {
		return false
	}

	if c.Quiet.Contains(now) {
		return false
	}

	if c.LastQuizAt == nil {
		return true
	}

	return now.Sub(*c.LastQuizAt) >= time.Duration(c.IntervalMinutes)*time.Minute
}
