package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
)

var (
	// ErrSessionAlreadyOpen is returned when a session is opened for a user
	// who already has one outstanding question.
	ErrSessionAlreadyOpen = errors.New("quiz session already open")

	// ErrNoActiveSession is returned for transitions on a user with no open
	// session, e.g. a stray reply or a second Expire on a closed session.
	ErrNoActiveSession = errors.New("no active quiz session")
)

// SessionRepository persists open sessions so a restart can recover them
// instead of losing pending questions silently.
type SessionRepository interface {
	Save(ctx context.Context, s *entities.Session) error
	Delete(ctx context.Context, userID int64) error
	GetAll(ctx context.Context) ([]*entities.Session, error)
}

// AnswerResult is the outcome of submitting an answer.
type AnswerResult struct {
	Session  *entities.Session
	Correct  bool
	Accepted []string // accepted answers for the session's effective mode
}

// SessionManager owns every live session and drives the per-user state
// machine: open on dispatch, close on correct answer, expiry or manual
// stop. All transitions for one user are serialized; different users never
// block each other.
type SessionManager struct {
	mu        sync.RWMutex
	live      map[int64]*entities.Session
	locks     *keyedMutex
	repo      SessionRepository
	evaluator *AnswerEvaluator
	logger    *zap.Logger
	pickMode  func() entities.QuizMode
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(repo SessionRepository, evaluator *AnswerEvaluator, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		live:      make(map[int64]*entities.Session),
		locks:     newKeyedMutex(),
		repo:      repo,
		evaluator: evaluator,
		logger:    logger,
		pickMode: func() entities.QuizMode {
			if rand.Intn(2) == 0 {
				return entities.ModeReading
			}
			return entities.ModeMeaning
		},
	}
}

// Restore loads persisted sessions into the live set at startup. Sessions
// whose deadline already passed are not filtered here; the first scheduler
// tick expires them.
func (m *SessionManager) Restore(ctx context.Context) error {
	sessions, err := m.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	for _, s := range sessions {
		m.live[s.UserID] = s
	}
	m.mu.Unlock()

	if len(sessions) > 0 {
		m.logger.Info("recovered pending quiz sessions", zap.Int("count", len(sessions)))
	}
	return nil
}

// Open creates a session for cfg's user with the given item. ModeRandom is
// resolved to reading or meaning here, once, and stays fixed for the
// session's lifetime. Fails with ErrSessionAlreadyOpen when a question is
// still outstanding.
func (m *SessionManager) Open(ctx context.Context, cfg *entities.UserConfig, item entities.QuizItem, now time.Time) (*entities.Session, error) {
	unlock := m.locks.Lock(cfg.UserID)
	defer unlock()

	if m.Get(cfg.UserID) != nil {
		return nil, ErrSessionAlreadyOpen
	}

	mode := cfg.Mode
	if mode == entities.ModeRandom {
		mode = m.pickMode()
	}

	session := entities.NewSession(cfg, item, mode, now)

	// The in-memory set is the source of truth; the durable record only
	// enables restart recovery, so a storage failure downgrades recovery
	// rather than blocking the quiz.
	if err := m.repo.Save(ctx, session); err != nil {
		m.logger.Warn("failed to persist session", zap.Int64("user_id", cfg.UserID), zap.Error(err))
	}

	m.mu.Lock()
	m.live[cfg.UserID] = session
	m.mu.Unlock()

	m.logger.Info("quiz session opened",
		zap.Int64("user_id", cfg.UserID),
		zap.String("kanji", item.Kanji),
		zap.String("mode", string(mode)),
	)

	return session, nil
}

// Submit evaluates an answer for the user's open session. A correct answer
// closes the session; an incorrect one leaves it open so the user can
// retry until the deadline. A reply with no open session returns
// ErrNoActiveSession, which the caller logs without telling the user.
func (m *SessionManager) Submit(ctx context.Context, userID int64, answer string) (*AnswerResult, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	session := m.Get(userID)
	if session == nil {
		return nil, ErrNoActiveSession
	}

	correct := m.evaluator.Evaluate(session, answer)
	if correct {
		m.remove(ctx, userID)
	}

	m.logger.Info("answer evaluated",
		zap.Int64("user_id", userID),
		zap.String("kanji", session.Item.Kanji),
		zap.Bool("correct", correct),
	)

	return &AnswerResult{
		Session:  session,
		Correct:  correct,
		Accepted: session.Item.Accepted(session.EffectiveMode),
	}, nil
}

// Expire closes the user's open session after its deadline passed.
// Calling it again once the session is gone is a reported no-op.
func (m *SessionManager) Expire(ctx context.Context, userID int64) (*entities.Session, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	session := m.Get(userID)
	if session == nil {
		return nil, ErrNoActiveSession
	}

	m.remove(ctx, userID)
	m.logger.Info("quiz session expired", zap.Int64("user_id", userID), zap.String("kanji", session.Item.Kanji))
	return session, nil
}

// ExpireOverdue closes every live session whose deadline has passed and
// returns them so the caller can notify the users. This is the baseline
// tick-driven timeout mechanism; it also sweeps sessions recovered after a
// restart whose deadline passed while the process was down.
func (m *SessionManager) ExpireOverdue(ctx context.Context, now time.Time) []*entities.Session {
	m.mu.RLock()
	candidates := make([]int64, 0)
	for userID, s := range m.live {
		if s.Expired(now) {
			candidates = append(candidates, userID)
		}
	}
	m.mu.RUnlock()

	expired := make([]*entities.Session, 0, len(candidates))
	for _, userID := range candidates {
		unlock := m.locks.Lock(userID)
		// Re-check under the lock: the session may have been answered,
		// stopped, or replaced between the scan and here.
		session := m.Get(userID)
		if session != nil && session.Expired(now) {
			m.remove(ctx, userID)
			m.logger.Info("quiz session expired", zap.Int64("user_id", userID), zap.String("kanji", session.Item.Kanji))
			expired = append(expired, session)
		}
		unlock()
	}

	return expired
}

// ForceStop cancels the user's open session without revealing the answer.
func (m *SessionManager) ForceStop(ctx context.Context, userID int64) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	if m.Get(userID) == nil {
		return ErrNoActiveSession
	}

	m.remove(ctx, userID)
	m.logger.Info("quiz session stopped by user", zap.Int64("user_id", userID))
	return nil
}

// Get returns the user's live session, or nil.
func (m *SessionManager) Get(userID int64) *entities.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[userID]
}

func (m *SessionManager) remove(ctx context.Context, userID int64) {
	m.mu.Lock()
	delete(m.live, userID)
	m.mu.Unlock()

	if err := m.repo.Delete(ctx, userID); err != nil {
		m.logger.Warn("failed to delete persisted session", zap.Int64("user_id", userID), zap.Error(err))
	}
}
