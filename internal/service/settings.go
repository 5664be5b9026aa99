package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
)

// ErrConfigNotFound is returned by repositories when no configuration
// record exists for a user.
var ErrConfigNotFound = errors.New("user config not found")

// ConfigRepository persists user configuration records.
type ConfigRepository interface {
	Get(ctx context.Context, userID int64) (*entities.UserConfig, error)
	Save(ctx context.Context, cfg *entities.UserConfig) error
	AllEnabled(ctx context.Context) ([]*entities.UserConfig, error)
	UpdateLastQuizAt(ctx context.Context, userID int64, at time.Time) error
	Delete(ctx context.Context, userID int64) error
}

// SettingsService owns the validated mutation path for user configuration.
// Every successful mutation is persisted before returning, so a crash right
// after a settings command cannot roll the change back silently.
type SettingsService struct {
	repo   ConfigRepository
	locks  *keyedMutex
	logger *zap.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(repo ConfigRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		locks:  newKeyedMutex(),
		logger: logger,
	}
}

// GetOrCreate returns the user's configuration, creating and persisting
// defaults on first contact.
func (s *SettingsService) GetOrCreate(ctx context.Context, userID, chatID int64) (*entities.UserConfig, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.getOrCreateLocked(ctx, userID, chatID)
}

func (s *SettingsService) getOrCreateLocked(ctx context.Context, userID, chatID int64) (*entities.UserConfig, error) {
	cfg, err := s.repo.Get(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, fmt.Errorf("get config: %w", err)
	}

	cfg = entities.NewUserConfig(userID, chatID)
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save default config: %w", err)
	}

	s.logger.Info("user registered with default settings", zap.Int64("user_id", userID))
	return cfg, nil
}

// Update applies a partial mutation atomically: the record is read (or
// created), mutated, validated and persisted under the user's lock. On a
// validation error the stored configuration is left unchanged.
func (s *SettingsService) Update(ctx context.Context, userID, chatID int64, mutate func(*entities.UserConfig) error) (*entities.UserConfig, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cfg, err := s.getOrCreateLocked(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	updated := *cfg
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	updated.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}

	return &updated, nil
}

// SetInterval sets the minutes between automatic quizzes.
func (s *SettingsService) SetInterval(ctx context.Context, userID, chatID int64, minutes int) (*entities.UserConfig, error) {
	return s.Update(ctx, userID, chatID, func(cfg *entities.UserConfig) error {
		cfg.IntervalMinutes = minutes
		return nil
	})
}

// SetTimeout sets the answer timeout; 0 disables expiry.
func (s *SettingsService) SetTimeout(ctx context.Context, userID, chatID int64, minutes int) (*entities.UserConfig, error) {
	return s.Update(ctx, userID, chatID, func(cfg *entities.UserConfig) error {
		cfg.TimeoutMinutes = minutes
		return nil
	})
}

// SetQuietWindow parses and sets the "HH:MM-HH:MM" quiet-hours window.
func (s *SettingsService) SetQuietWindow(ctx context.Context, userID, chatID int64, raw string) (*entities.UserConfig, error) {
	window, err := entities.ParseQuietWindow(raw)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, userID, chatID, func(cfg *entities.UserConfig) error {
		cfg.Quiet = window
		return nil
	})
}

// SetMode sets the quiz mode from a user-supplied token.
func (s *SettingsService) SetMode(ctx context.Context, userID, chatID int64, token string) (*entities.UserConfig, error) {
	mode, err := entities.ParseQuizMode(token)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, userID, chatID, func(cfg *entities.UserConfig) error {
		cfg.Mode = mode
		return nil
	})
}

// SetAutoEnabled toggles automatic dispatch. Manual /quiz stays available
// when disabled.
func (s *SettingsService) SetAutoEnabled(ctx context.Context, userID, chatID int64, enabled bool) (*entities.UserConfig, error) {
	return s.Update(ctx, userID, chatID, func(cfg *entities.UserConfig) error {
		cfg.AutoEnabled = enabled
		return nil
	})
}

// SetSheetURL links the user's content sheet.
func (s *SettingsService) SetSheetURL(ctx context.Context, userID, chatID int64, url string) (*entities.UserConfig, error) {
	return s.Update(ctx, userID, chatID, func(cfg *entities.UserConfig) error {
		cfg.SheetURL = url
		return nil
	})
}

// MarkQuizSent stamps the last dispatch time. The interval clock is based
// on dispatch time, not on whether the answer turned out correct.
func (s *SettingsService) MarkQuizSent(ctx context.Context, userID int64, at time.Time) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.repo.UpdateLastQuizAt(ctx, userID, at); err != nil {
		return fmt.Errorf("update last quiz at: %w", err)
	}
	return nil
}

// AllEnabled returns the configurations of all users with automatic
// dispatch enabled, for scheduler iteration.
func (s *SettingsService) AllEnabled(ctx context.Context) ([]*entities.UserConfig, error) {
	return s.repo.AllEnabled(ctx)
}

// Delete removes a user's configuration.
func (s *SettingsService) Delete(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.repo.Delete(ctx, userID)
}
