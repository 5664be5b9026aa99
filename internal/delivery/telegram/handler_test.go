package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func TestHandleCallbackWithoutMessage(t *testing.T) {
	h := &Handler{logger: zap.NewNop(), states: newInputStates()}

	// Callbacks from buttons older than Telegram keeps messages around for
	// arrive without Message; they must be dropped, not dereferenced.
	cb := &tgbotapi.CallbackQuery{
		ID:   "stale",
		From: &tgbotapi.User{ID: 1},
		Data: buildCommandCallback("quiz"),
	}

	h.handleCallback(context.Background(), cb)
}
