package telegram

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
)

type HandlerFunc func(ctx context.Context, chatID int64) error

// withErrorHandling turns handler failures into user replies. Rejected
// setting values echo their reason back to the user; anything else is
// logged and reported generically.
func (h *Handler) withErrorHandling(fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		err := fn(ctx, chatID)
		if err == nil {
			return nil
		}

		if reply, ok := userFacingError(err); ok {
			h.sendError(chatID, reply)
			return nil
		}

		h.logger.Error("handle error",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		h.sendError(chatID, msgInternalError)
		return nil
	}
}

// userFacingError maps an error to the message shown to the user, if any.
func userFacingError(err error) (string, bool) {
	var vErr *entities.ValidationError
	if errors.As(err, &vErr) {
		return "⚠️ " + vErr.Reason, true
	}
	return "", false
}
