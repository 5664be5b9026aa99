package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kanji-quiz-bot/internal/domain/entities"
	"kanji-quiz-bot/internal/service"
)

type Handler struct {
	bot            *tgbotapi.BotAPI
	logger         *zap.Logger
	settings       SettingsService
	sessions       SessionService
	dispatcher     Dispatcher
	sheetValidator SheetValidator
	states         *inputStates
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	logger *zap.Logger,
	settings SettingsService,
	sessions SessionService,
	dispatcher Dispatcher,
	sheetValidator SheetValidator,
) *Handler {
	return &Handler{
		bot:            bot,
		logger:         logger,
		settings:       settings,
		sessions:       sessions,
		dispatcher:     dispatcher,
		sheetValidator: sheetValidator,
		states:         newInputStates(),
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("text", update.Message.Text),
	)

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if update.Message.IsCommand() {
		// A command cancels any pending prompt.
		h.states.Pop(userID)
		h.handleCommand(ctx, update.Message)
		return
	}

	if pending, ok := h.states.Pop(userID); ok {
		_ = h.withErrorHandling(h.inputHandler(userID, pending, update.Message.Text))(ctx, chatID)
		return
	}

	h.handleAnswer(ctx, userID, chatID, update.Message.Text)
}

// handleAnswer routes free text to the user's open session. Text with no
// session behind it is dropped silently so chatter does not trigger
// warnings.
func (h *Handler) handleAnswer(ctx context.Context, userID, chatID int64, text string) {
	result, err := h.sessions.Submit(ctx, userID, text)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			h.logger.Debug("text without active session", zap.Int64("user_id", userID))
			return
		}
		h.logger.Error("failed to submit answer", zap.Int64("user_id", userID), zap.Error(err))
		h.sendError(chatID, msgInternalError)
		return
	}

	if result.Correct {
		h.send(newPlainMessage(chatID, buildCorrect(result.Accepted)))
		return
	}

	h.send(newPlainMessage(chatID, msgIncorrect))
}

// SendQuestion implements service.Notifier.
func (h *Handler) SendQuestion(chatID int64, s *entities.Session) error {
	msg := newPlainMessage(chatID, buildQuestion(s))
	_, err := h.bot.Send(msg)
	return err
}

// SendTimeout implements service.Notifier.
func (h *Handler) SendTimeout(chatID int64, s *entities.Session) error {
	msg := newPlainMessage(chatID, buildTimeout(s))
	_, err := h.bot.Send(msg)
	return err
}

// SendContentIssue implements service.Notifier.
func (h *Handler) SendContentIssue(chatID int64) error {
	msg := newPlainMessage(chatID, msgSheetUnavailable)
	_, err := h.bot.Send(msg)
	return err
}

func (h *Handler) sendError(chatID int64, text string) {
	h.send(newPlainMessage(chatID, text))
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}
