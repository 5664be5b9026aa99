package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
)

// ErrNoContent signals that the content source could not supply an item
// for a user (unlinked, empty or unreadable sheet).
var ErrNoContent = errors.New("no quiz content available")

// ContentSource supplies quiz items for a user's linked sheet. ok=false
// means no content is available this cycle; the scheduler skips the user
// without stamping lastQuizAt.
type ContentSource interface {
	NextItem(ctx context.Context, cfg *entities.UserConfig) (entities.QuizItem, bool, error)
}

// Notifier delivers scheduler-originated messages. Implemented by the
// telegram delivery layer.
type Notifier interface {
	SendQuestion(chatID int64, s *entities.Session) error
	SendTimeout(chatID int64, s *entities.Session) error
	SendContentIssue(chatID int64) error
}

// Scheduler is the driving loop: every tick it expires overdue sessions
// and dispatches an automatic quiz to every due user. Users are processed
// with bounded concurrency and one user's failure never halts the others.
type Scheduler struct {
	settings *SettingsService
	sessions *SessionManager
	source   ContentSource
	notifier Notifier
	logger   *zap.Logger

	tickEvery     time.Duration
	maxConcurrent int

	wg sync.WaitGroup

	streakMu    sync.Mutex
	failStreaks map[int64]int
}

// NewScheduler creates a new Scheduler. The notifier is set separately
// because the delivery layer is constructed after the services.
func NewScheduler(
	settings *SettingsService,
	sessions *SessionManager,
	source ContentSource,
	logger *zap.Logger,
	tickEvery time.Duration,
	maxConcurrent int,
) *Scheduler {
	if tickEvery <= 0 {
		tickEvery = 30 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Scheduler{
		settings:      settings,
		sessions:      sessions,
		source:        source,
		logger:        logger,
		tickEvery:     tickEvery,
		maxConcurrent: maxConcurrent,
		failStreaks:   make(map[int64]int),
	}
}

// SetNotifier sets the notifier (called after the delivery layer exists).
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start runs the tick loop until ctx is cancelled, then drains in-flight
// per-user work before returning.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("tick", s.tickEvery))

	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.tickEvery), func() {
		s.RunTick(ctx, time.Now().UTC())
	})
	if err != nil {
		s.logger.Error("failed to add cron job", zap.Error(err))
		return
	}

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunTick executes one scheduling pass at the given time: expire overdue
// sessions, then dispatch to every due user. It returns once all per-user
// work for the pass has finished.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) {
	for _, session := range s.sessions.ExpireOverdue(ctx, now) {
		if err := s.notifier.SendTimeout(session.ChatID, session); err != nil {
			s.logger.Error("failed to send timeout notice",
				zap.Int64("user_id", session.UserID),
				zap.Error(err),
			)
		}
	}

	configs, err := s.settings.AllEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to load enabled users", zap.Error(err))
		return
	}

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for _, cfg := range configs {
		if !cfg.DueFor(now) || s.sessions.Get(cfg.UserID) != nil {
			continue
		}

		wg.Add(1)
		s.wg.Add(1)
		sem <- struct{}{}

		cfg := cfg
		go func() {
			defer wg.Done()
			defer s.wg.Done()
			defer func() { <-sem }()

			_, err := s.Dispatch(ctx, cfg, now)
			switch {
			case err == nil:
				s.contentRecovered(cfg.UserID)
			case errors.Is(err, ErrNoContent):
				s.contentFailed(cfg)
			case errors.Is(err, ErrSessionAlreadyOpen):
				// A manual /quiz won the race for this user; nothing to do.
			default:
				s.contentFailed(cfg)
				s.logger.Error("automatic dispatch failed",
					zap.Int64("user_id", cfg.UserID),
					zap.Error(err),
				)
			}
		}()
	}

	wg.Wait()
}

// Dispatch draws an item, opens a session and sends the question. It is
// used both by the tick loop and by the manual /quiz command, which
// bypasses due-ness checks but still hits the at-most-one-session
// invariant inside Open. lastQuizAt is stamped at dispatch time.
func (s *Scheduler) Dispatch(ctx context.Context, cfg *entities.UserConfig, now time.Time) (*entities.Session, error) {
	item, ok, err := s.source.NextItem(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("draw quiz item: %w", err)
	}
	if !ok {
		return nil, ErrNoContent
	}

	session, err := s.sessions.Open(ctx, cfg, item, now)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendQuestion(cfg.ChatID, session); err != nil {
		s.logger.Error("failed to send question", zap.Int64("user_id", cfg.UserID), zap.Error(err))
	}

	if err := s.settings.MarkQuizSent(ctx, cfg.UserID, now); err != nil {
		s.logger.Error("failed to stamp last quiz time", zap.Int64("user_id", cfg.UserID), zap.Error(err))
	}

	return session, nil
}

// contentFailed notifies the user once per failure streak instead of every
// tick, to avoid notification storms from a broken or empty sheet.
func (s *Scheduler) contentFailed(cfg *entities.UserConfig) {
	s.streakMu.Lock()
	s.failStreaks[cfg.UserID]++
	streak := s.failStreaks[cfg.UserID]
	s.streakMu.Unlock()

	s.logger.Warn("quiz content unavailable",
		zap.Int64("user_id", cfg.UserID),
		zap.Int("streak", streak),
	)

	if streak == 1 {
		if err := s.notifier.SendContentIssue(cfg.ChatID); err != nil {
			s.logger.Error("failed to send content issue notice", zap.Int64("user_id", cfg.UserID), zap.Error(err))
		}
	}
}

func (s *Scheduler) contentRecovered(userID int64) {
	s.streakMu.Lock()
	delete(s.failStreaks, userID)
	s.streakMu.Unlock()
}

// ForgetUser drops per-user scheduler state when the user's data is
// deleted, so a later re-registration starts with a clean slate.
func (s *Scheduler) ForgetUser(userID int64) {
	s.contentRecovered(userID)
}
