package repository

import (
	"context"
	"fmt"

	"kanji-quiz-bot/internal/domain/entities"
	"kanji-quiz-bot/internal/infra/postgres"
)

// SessionRepository persists the open quiz session per user so pending
// questions survive a restart. At most one row exists per user.
type SessionRepository struct {
	db postgres.DBTX
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db postgres.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save inserts or replaces the user's pending session record.
func (r *SessionRepository) Save(ctx context.Context, s *entities.Session) error {
	query := `
		INSERT INTO quiz_sessions (
			user_id, chat_id, kanji, readings, meanings,
			effective_mode, opened_at, deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			kanji = EXCLUDED.kanji,
			readings = EXCLUDED.readings,
			meanings = EXCLUDED.meanings,
			effective_mode = EXCLUDED.effective_mode,
			opened_at = EXCLUDED.opened_at,
			deadline = EXCLUDED.deadline
	`

	_, err := r.db.Exec(ctx, query,
		s.UserID,
		s.ChatID,
		s.Item.Kanji,
		s.Item.Readings,
		s.Item.Meanings,
		string(s.EffectiveMode),
		s.OpenedAt,
		s.Deadline,
	)
	if err != nil {
		return fmt.Errorf("save quiz session: %w", err)
	}

	return nil
}

// Delete removes the user's pending session record.
func (r *SessionRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quiz_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete quiz session: %w", err)
	}
	return nil
}

// GetAll returns every pending session, for recovery at startup.
func (r *SessionRepository) GetAll(ctx context.Context) ([]*entities.Session, error) {
	query := `
		SELECT user_id, chat_id, kanji, readings, meanings,
		       effective_mode, opened_at, deadline
		FROM quiz_sessions
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quiz sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entities.Session
	for rows.Next() {
		var (
			s    entities.Session
			mode string
		)
		err := rows.Scan(
			&s.UserID,
			&s.ChatID,
			&s.Item.Kanji,
			&s.Item.Readings,
			&s.Item.Meanings,
			&mode,
			&s.OpenedAt,
			&s.Deadline,
		)
		if err != nil {
			return nil, fmt.Errorf("scan quiz session: %w", err)
		}
		s.EffectiveMode = entities.QuizMode(mode)
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quiz sessions: %w", err)
	}

	return sessions, nil
}
