package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
)

type fakeConfigRepo struct {
	mu      sync.Mutex
	configs map[int64]*entities.UserConfig
	saveErr error
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: make(map[int64]*entities.UserConfig)}
}

func (r *fakeConfigRepo) Get(_ context.Context, userID int64) (*entities.UserConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return nil, ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *fakeConfigRepo) Save(_ context.Context, cfg *entities.UserConfig) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cfg
	r.configs[cfg.UserID] = &copied
	return nil
}

func (r *fakeConfigRepo) AllEnabled(_ context.Context) ([]*entities.UserConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.UserConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		if cfg.AutoEnabled {
			copied := *cfg
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeConfigRepo) UpdateLastQuizAt(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return ErrConfigNotFound
	}
	cfg.LastQuizAt = &at
	return nil
}

func (r *fakeConfigRepo) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, userID)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[int64]*entities.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int64]*entities.Session)}
}

func (r *fakeSessionRepo) Save(_ context.Context, s *entities.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.UserID] = s
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

func (r *fakeSessionRepo) GetAll(_ context.Context) ([]*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSessionRepo) has(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[userID]
	return ok
}

type fakeNotifier struct {
	mu            sync.Mutex
	questions     []int64 // chat IDs that received a question
	timeouts      []int64
	contentIssues []int64
}

func (n *fakeNotifier) SendQuestion(chatID int64, _ *entities.Session) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.questions = append(n.questions, chatID)
	return nil
}

func (n *fakeNotifier) SendTimeout(chatID int64, _ *entities.Session) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timeouts = append(n.timeouts, chatID)
	return nil
}

func (n *fakeNotifier) SendContentIssue(chatID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contentIssues = append(n.contentIssues, chatID)
	return nil
}

func (n *fakeNotifier) counts() (questions, timeouts, issues int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.questions), len(n.timeouts), len(n.contentIssues)
}

type fakeSource struct {
	mu    sync.Mutex
	items map[int64]entities.QuizItem
	err   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{items: make(map[int64]entities.QuizItem)}
}

func (s *fakeSource) NextItem(_ context.Context, cfg *entities.UserConfig) (entities.QuizItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return entities.QuizItem{}, false, s.err
	}
	item, ok := s.items[cfg.UserID]
	return item, ok, nil
}

var errStorage = errors.New("storage unavailable")

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testItem() entities.QuizItem {
	return entities.QuizItem{
		Kanji:    "日",
		Readings: []string{"nichi", "jitsu"},
		Meanings: []string{"day", "sun"},
	}
}
