package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
	"kanji-quiz-bot/internal/service"
)

// Callback action constants.
const (
	actionCommand = "cmd"
	actionMode    = "mode"
	actionReset   = "reset"
)

// Reset sub-actions.
const (
	resetConfirm = "confirm"
	resetCancel  = "cancel"
)

func buildCommandCallback(command string) string {
	return actionCommand + ":" + command
}

func buildModeCallback(mode entities.QuizMode) string {
	return actionMode + ":" + string(mode)
}

func buildResetCallback(choice string) string {
	return actionReset + ":" + choice
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Telegram omits Message on callbacks from old buttons.
	if cb.Message == nil {
		h.logger.Debug("callback without message", zap.String("data", cb.Data))
		return
	}

	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, actionCommand+":"):
		command := strings.TrimPrefix(cb.Data, actionCommand+":")
		h.dispatchCommand(ctx, command, userID, chatID)

	case strings.HasPrefix(cb.Data, actionMode+":"):
		token := strings.TrimPrefix(cb.Data, actionMode+":")
		_ = h.withErrorHandling(h.modeHandler(userID, token))(ctx, chatID)

	case strings.HasPrefix(cb.Data, actionReset+":"):
		choice := strings.TrimPrefix(cb.Data, actionReset+":")
		_ = h.withErrorHandling(h.resetHandler(userID, choice))(ctx, chatID)

	default:
		h.logger.Debug("unknown callback", zap.String("data", cb.Data))
	}

	// Remove the user's "clock".
	answer := tgbotapi.NewCallback(cb.ID, "")
	if _, err := h.bot.Request(answer); err != nil {
		h.logger.Error("callback answer error", zap.Error(err))
	}
}

func (h *Handler) modeHandler(userID int64, token string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		cfg, err := h.settings.SetMode(ctx, userID, chatID, token)
		if err != nil {
			return fmt.Errorf("set mode: %w", err)
		}

		h.send(newPlainMessage(chatID, buildModeConfirmation(cfg.Mode)))
		return nil
	}
}

// resetHandler deletes everything stored for the user once confirmed. Any
// open question is cancelled first so no orphan session row survives.
func (h *Handler) resetHandler(userID int64, choice string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if choice != resetConfirm {
			h.send(newPlainMessage(chatID, msgResetCancelled))
			return nil
		}

		if err := h.sessions.ForceStop(ctx, userID); err != nil && !errors.Is(err, service.ErrNoActiveSession) {
			return fmt.Errorf("stop session: %w", err)
		}
		if err := h.settings.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user data: %w", err)
		}
		h.dispatcher.ForgetUser(userID)
		h.sheetValidator.ForgetUser(userID)

		h.send(newPlainMessage(chatID, msgResetDone))
		return nil
	}
}
