package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kanji-quiz-bot/internal/domain/entities"
	"kanji-quiz-bot/internal/infra/postgres"
	"kanji-quiz-bot/internal/service"
)

// UserConfigRepository provides access to user configuration records in
// the database.
type UserConfigRepository struct {
	db postgres.DBTX
	tx *postgres.Transactor
}

// NewUserConfigRepository creates a new UserConfigRepository.
func NewUserConfigRepository(db postgres.DBTX, tx *postgres.Transactor) *UserConfigRepository {
	return &UserConfigRepository{db: db, tx: tx}
}

const userConfigColumns = `
	user_id, chat_id, interval_minutes, timeout_minutes,
	quiet_start, quiet_end, mode, auto_enabled,
	last_quiz_at, sheet_url, created_at, updated_at
`

// Get retrieves a user's configuration.
func (r *UserConfigRepository) Get(ctx context.Context, userID int64) (*entities.UserConfig, error) {
	query := `SELECT ` + userConfigColumns + ` FROM user_configs WHERE user_id = $1`

	cfg, err := scanUserConfig(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrConfigNotFound
		}
		return nil, fmt.Errorf("get user config: %w", err)
	}

	return cfg, nil
}

// Save inserts or fully replaces a user's configuration.
func (r *UserConfigRepository) Save(ctx context.Context, cfg *entities.UserConfig) error {
	query := `
		INSERT INTO user_configs (` + userConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			interval_minutes = EXCLUDED.interval_minutes,
			timeout_minutes = EXCLUDED.timeout_minutes,
			quiet_start = EXCLUDED.quiet_start,
			quiet_end = EXCLUDED.quiet_end,
			mode = EXCLUDED.mode,
			auto_enabled = EXCLUDED.auto_enabled,
			last_quiz_at = EXCLUDED.last_quiz_at,
			sheet_url = EXCLUDED.sheet_url,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		cfg.UserID,
		cfg.ChatID,
		cfg.IntervalMinutes,
		cfg.TimeoutMinutes,
		int(cfg.Quiet.Start),
		int(cfg.Quiet.End),
		string(cfg.Mode),
		cfg.AutoEnabled,
		cfg.LastQuizAt,
		cfg.SheetURL,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save user config: %w", err)
	}

	return nil
}

// AllEnabled returns configurations of all users with automatic dispatch
// enabled.
func (r *UserConfigRepository) AllEnabled(ctx context.Context) ([]*entities.UserConfig, error) {
	query := `SELECT ` + userConfigColumns + ` FROM user_configs WHERE auto_enabled`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list enabled user configs: %w", err)
	}
	defer rows.Close()

	var configs []*entities.UserConfig
	for rows.Next() {
		cfg, err := scanUserConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user configs: %w", err)
	}

	return configs, nil
}

// UpdateLastQuizAt stamps the last dispatch time.
func (r *UserConfigRepository) UpdateLastQuizAt(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE user_configs SET last_quiz_at = $1, updated_at = $1 WHERE user_id = $2`

	result, err := r.db.Exec(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("update last quiz at: %w", err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrConfigNotFound
	}

	return nil
}

// Delete removes a user's configuration together with any pending session
// in a single transaction.
func (r *UserConfigRepository) Delete(ctx context.Context, userID int64) error {
	err := r.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quiz_sessions WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM user_configs WHERE user_id = $1`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete user config: %w", err)
	}

	return nil
}

func scanUserConfig(row pgx.Row) (*entities.UserConfig, error) {
	var (
		cfg        entities.UserConfig
		quietStart int
		quietEnd   int
		mode       string
	)

	err := row.Scan(
		&cfg.UserID,
		&cfg.ChatID,
		&cfg.IntervalMinutes,
		&cfg.TimeoutMinutes,
		&quietStart,
		&quietEnd,
		&mode,
		&cfg.AutoEnabled,
		&cfg.LastQuizAt,
		&cfg.SheetURL,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Quiet = entities.QuietWindow{Start: entities.TimeOfDay(quietStart), End: entities.TimeOfDay(quietEnd)}
	cfg.Mode = entities.QuizMode(mode)
	return &cfg, nil
}
