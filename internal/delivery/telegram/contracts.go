package telegram

import (
	"context"
	"time"

	"kanji-quiz-bot/internal/domain/entities"
	"kanji-quiz-bot/internal/service"
)

type SettingsService interface {
	GetOrCreate(ctx context.Context, userID, chatID int64) (*entities.UserConfig, error)
	SetInterval(ctx context.Context, userID, chatID int64, minutes int) (*entities.UserConfig, error)
	SetTimeout(ctx context.Context, userID, chatID int64, minutes int) (*entities.UserConfig, error)
	SetQuietWindow(ctx context.Context, userID, chatID int64, raw string) (*entities.UserConfig, error)
	SetMode(ctx context.Context, userID, chatID int64, token string) (*entities.UserConfig, error)
	SetAutoEnabled(ctx context.Context, userID, chatID int64, enabled bool) (*entities.UserConfig, error)
	SetSheetURL(ctx context.Context, userID, chatID int64, url string) (*entities.UserConfig, error)
	Delete(ctx context.Context, userID int64) error
}

type SessionService interface {
	Submit(ctx context.Context, userID int64, answer string) (*service.AnswerResult, error)
	ForceStop(ctx context.Context, userID int64) error
	Get(userID int64) *entities.Session
}

// Dispatcher sends a question to one user immediately, used by the manual
// /quiz command.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg *entities.UserConfig, now time.Time) (*entities.Session, error)
	ForgetUser(userID int64)
}

// SheetValidator checks a sheet link before it is persisted.
type SheetValidator interface {
	Validate(ctx context.Context, url string) error
	ForgetUser(userID int64)
}
