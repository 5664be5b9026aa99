package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kanji-quiz-bot/internal/service"
)

func (h *Handler) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	h.dispatchCommand(ctx, m.Command(), m.From.ID, m.Chat.ID)
}

// dispatchCommand routes a command by name. Callbacks from the command
// menu land here too, so every command works from both the keyboard and
// typed text.
func (h *Handler) dispatchCommand(ctx context.Context, command string, userID, chatID int64) {
	switch command {
	case "start":
		_ = h.withErrorHandling(h.startHandler(userID))(ctx, chatID)

	case "help":
		msg := newPlainMessage(chatID, msgHelp)
		msg.ReplyMarkup = buildCommandsKeyboard()
		h.send(msg)

	case "setup":
		h.states.Set(userID, pendingSheetURL)
		h.send(newPlainMessage(chatID, msgSetupPrompt))

	case "quiz":
		_ = h.withErrorHandling(h.quizHandler(userID))(ctx, chatID)

	case "stopquiz":
		h.stopQuizHandler(ctx, userID, chatID)

	case "stopquizauto":
		_ = h.withErrorHandling(h.autoToggleHandler(userID, false))(ctx, chatID)

	case "startquizauto":
		_ = h.withErrorHandling(h.autoToggleHandler(userID, true))(ctx, chatID)

	case "setinterval":
		h.states.Set(userID, pendingInterval)
		h.send(newPlainMessage(chatID, msgIntervalPrompt))

	case "settimeout":
		h.states.Set(userID, pendingTimeout)
		h.send(newPlainMessage(chatID, msgTimeoutPrompt))

	case "setquietinterval":
		h.states.Set(userID, pendingQuietWindow)
		h.send(newPlainMessage(chatID, msgQuietPrompt))

	case "setmode":
		msg := newPlainMessage(chatID, msgModePrompt)
		msg.ReplyMarkup = buildModeKeyboard()
		h.send(msg)

	case "settings":
		_ = h.withErrorHandling(h.settingsHandler(userID))(ctx, chatID)

	case "reset":
		msg := newPlainMessage(chatID, msgResetConfirm)
		msg.ReplyMarkup = buildResetKeyboard()
		h.send(msg)

	default:
		h.send(newPlainMessage(chatID, msgUnknownCommand))
	}
}

func (h *Handler) startHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if _, err := h.settings.GetOrCreate(ctx, userID, chatID); err != nil {
			return fmt.Errorf("get or create config: %w", err)
		}

		msg := newPlainMessage(chatID, msgWelcome)
		msg.ReplyMarkup = buildCommandsKeyboard()
		h.send(msg)
		return nil
	}
}

// quizHandler sends a question immediately, outside the automatic
// schedule. Interval and quiet hours do not apply here; the single open
// session rule still does.
func (h *Handler) quizHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		cfg, err := h.settings.GetOrCreate(ctx, userID, chatID)
		if err != nil {
			return fmt.Errorf("get or create config: %w", err)
		}

		if cfg.SheetURL == "" {
			h.send(newPlainMessage(chatID, msgSetupFirst))
			return nil
		}

		if h.sessions.Get(userID) != nil {
			h.send(newPlainMessage(chatID, msgQuizAlreadyOpen))
			return nil
		}

		_, err = h.dispatcher.Dispatch(ctx, cfg, time.Now().UTC())
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrNoContent):
			h.send(newPlainMessage(chatID, msgSheetUnavailable))
			return nil
		case errors.Is(err, service.ErrSessionAlreadyOpen):
			h.send(newPlainMessage(chatID, msgQuizAlreadyOpen))
			return nil
		default:
			return fmt.Errorf("dispatch quiz: %w", err)
		}
	}
}

func (h *Handler) stopQuizHandler(ctx context.Context, userID, chatID int64) {
	err := h.sessions.ForceStop(ctx, userID)
	if errors.Is(err, service.ErrNoActiveSession) {
		h.send(newPlainMessage(chatID, msgNoQuizToStop))
		return
	}

	h.send(newPlainMessage(chatID, msgQuizStopped))
}

func (h *Handler) autoToggleHandler(userID int64, enabled bool) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		cfg, err := h.settings.GetOrCreate(ctx, userID, chatID)
		if err != nil {
			return fmt.Errorf("get or create config: %w", err)
		}

		if !enabled && !cfg.AutoEnabled {
			h.send(newPlainMessage(chatID, msgAutoAlreadyDisabled))
			return nil
		}

		if _, err := h.settings.SetAutoEnabled(ctx, userID, chatID, enabled); err != nil {
			return fmt.Errorf("set auto enabled: %w", err)
		}

		text := msgAutoDisabled
		if enabled {
			text = msgAutoEnabled
		}
		h.send(newPlainMessage(chatID, text))
		return nil
	}
}

func (h *Handler) settingsHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		cfg, err := h.settings.GetOrCreate(ctx, userID, chatID)
		if err != nil {
			return fmt.Errorf("get or create config: %w", err)
		}

		msg := newPlainMessage(chatID, buildSettings(cfg))
		msg.ReplyMarkup = buildCommandsKeyboard()
		h.send(msg)
		return nil
	}
}

// inputHandler consumes the reply to a two-step prompt.
func (h *Handler) inputHandler(userID int64, pending pendingInput, text string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		switch pending {
		case pendingSheetURL:
			return h.handleSheetInput(ctx, userID, chatID, text)
		case pendingInterval:
			return h.handleIntervalInput(ctx, userID, chatID, text)
		case pendingTimeout:
			return h.handleTimeoutInput(ctx, userID, chatID, text)
		case pendingQuietWindow:
			return h.handleQuietInput(ctx, userID, chatID, text)
		}
		return nil
	}
}

func (h *Handler) handleSheetInput(ctx context.Context, userID, chatID int64, text string) error {
	if err := h.sheetValidator.Validate(ctx, text); err != nil {
		h.logger.Warn("sheet validation failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		h.send(newPlainMessage(chatID, msgSheetInvalid))
		return nil
	}

	if _, err := h.settings.SetSheetURL(ctx, userID, chatID, text); err != nil {
		return fmt.Errorf("set sheet url: %w", err)
	}

	h.send(newPlainMessage(chatID, msgSetupDone))
	return nil
}

func (h *Handler) handleIntervalInput(ctx context.Context, userID, chatID int64, text string) error {
	minutes, err := strconv.Atoi(text)
	if err != nil {
		h.send(newPlainMessage(chatID, msgNotANumber))
		return nil
	}

	cfg, err := h.settings.SetInterval(ctx, userID, chatID, minutes)
	if err != nil {
		return fmt.Errorf("set interval: %w", err)
	}

	h.send(newPlainMessage(chatID, buildIntervalConfirmation(cfg.IntervalMinutes)))
	return nil
}

func (h *Handler) handleTimeoutInput(ctx context.Context, userID, chatID int64, text string) error {
	minutes, err := strconv.Atoi(text)
	if err != nil {
		h.send(newPlainMessage(chatID, msgNotANumber))
		return nil
	}

	cfg, err := h.settings.SetTimeout(ctx, userID, chatID, minutes)
	if err != nil {
		return fmt.Errorf("set timeout: %w", err)
	}

	h.send(newPlainMessage(chatID, buildTimeoutConfirmation(cfg.TimeoutMinutes)))
	return nil
}

func (h *Handler) handleQuietInput(ctx context.Context, userID, chatID int64, text string) error {
	cfg, err := h.settings.SetQuietWindow(ctx, userID, chatID, text)
	if err != nil {
		return fmt.Errorf("set quiet window: %w", err)
	}

	h.send(newPlainMessage(chatID, buildQuietConfirmation(cfg.Quiet)))
	return nil
}
