package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kanji-quiz-bot/internal/domain/entities"
)

// buildCommandsKeyboard builds the main command menu.
func buildCommandsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Link Google Sheet", buildCommandCallback("setup")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Quiz now", buildCommandCallback("quiz")),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Cancel question", buildCommandCallback("stopquiz")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏳ Interval", buildCommandCallback("setinterval")),
			tgbotapi.NewInlineKeyboardButtonData("⌛ Timeout", buildCommandCallback("settimeout")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌙 Quiet hours", buildCommandCallback("setquietinterval")),
			tgbotapi.NewInlineKeyboardButtonData("🎲 Quiz mode", buildCommandCallback("setmode")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Auto on", buildCommandCallback("startquizauto")),
			tgbotapi.NewInlineKeyboardButtonData("⛔ Auto off", buildCommandCallback("stopquizauto")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ My settings", buildCommandCallback("settings")),
		),
	)
}

// buildResetKeyboard builds the delete-account confirmation keyboard.
func buildResetKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, delete everything", buildResetCallback(resetConfirm)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", buildResetCallback(resetCancel)),
		),
	)
}

// buildModeKeyboard builds the quiz mode picker.
func buildModeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🈶 Readings", buildModeCallback(entities.ModeReading)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 Meanings", buildModeCallback(entities.ModeMeaning)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎲 Random", buildModeCallback(entities.ModeRandom)),
		),
	)
}
