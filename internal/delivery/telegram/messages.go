// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kanji-quiz-bot/internal/domain/entities"
)

const (
	msgWelcome = "こんにちは！I will quiz you on Japanese kanji!\n\nClick a command below to set up:"
	msgHelp    = "📌 Click a command below to use it:"

	msgSetupPrompt         = "🔗 Please send your Google Sheet URL now."
	msgIntervalPrompt      = "⏳ Enter the quiz interval in minutes (e.g. 15)."
	msgTimeoutPrompt       = "⌛ Enter the answer timeout in minutes (e.g. 5). 0 disables the timeout."
	msgQuietPrompt         = "🌙 Enter the quiet hours in HH:MM-HH:MM format (e.g. 22:00-07:00)."
	msgModePrompt          = "🎯 Choose a quiz mode:"
	msgSetupDone           = "✅ Your Google Sheet has been linked! Use /quiz to start."
	msgSheetInvalid        = "❌ The spreadsheet URL is invalid or the sheet is not accessible."
	msgSetupFirst          = "⚠️ Set up your Google Sheet first using /setup."
	msgSheetUnavailable    = "⚠️ Couldn't read your Google Sheet. Check that it is shared and not empty."
	msgNotANumber          = "⚠️ Please enter a valid number."
	msgQuizAlreadyOpen     = "⚠️ You already have a question waiting. Answer it or use /stopquiz first."
	msgNoQuizToStop        = "⚠️ No active question to stop."
	msgQuizStopped         = "✅ Question cancelled."
	msgAutoDisabled        = "⛔ Automatic quiz sending has been stopped. Use the menu to re-enable it."
	msgAutoAlreadyDisabled = "⚠️ Automatic quiz sending is already stopped."
	msgAutoEnabled         = "▶️ Automatic quiz sending is on."
	msgIncorrect           = "❌ Incorrect! Try again."
	msgResetConfirm        = "⚠️ This deletes your linked sheet and all settings. Are you sure?"
	msgResetDone           = "🗑 All your data has been deleted. Use /start to begin again."
	msgResetCancelled      = "👌 Nothing was deleted."
	msgInternalError       = "Something went wrong. Please try again later."
	msgUnknownCommand      = "Unknown command. Use /help to see what I can do."
)

func buildQuestion(s *entities.Session) string {
	if s.EffectiveMode == entities.ModeReading {
		return fmt.Sprintf("🔹 What is the reading of this kanji: %s?", s.Item.Kanji)
	}
	return fmt.Sprintf("🔹 What is the meaning of this kanji: %s?", s.Item.Kanji)
}

func buildCorrect(accepted []string) string {
	return fmt.Sprintf("✅ Correct! 🎉\n\nAll accepted answers: %s", strings.Join(accepted, ", "))
}

func buildTimeout(s *entities.Session) string {
	accepted := s.Item.Accepted(s.EffectiveMode)
	return fmt.Sprintf("⌛ Time's up! The correct answer was: %s", strings.Join(accepted, ", "))
}

func buildModeConfirmation(mode entities.QuizMode) string {
	return fmt.Sprintf("✅ Quiz mode set to %s.", mode)
}

func buildIntervalConfirmation(minutes int) string {
	return fmt.Sprintf("✅ Quiz interval set to %d minutes.", minutes)
}

func buildTimeoutConfirmation(minutes int) string {
	if minutes == 0 {
		return "✅ Answer timeout disabled; questions will wait until answered."
	}
	return fmt.Sprintf("✅ Answer timeout set to %d minutes.", minutes)
}

func buildQuietConfirmation(w entities.QuietWindow) string {
	return fmt.Sprintf("🌙 Quiet hours set from %s to %s.", w.Start, w.End)
}

func buildSettings(cfg *entities.UserConfig) string {
	sheet := "not linked"
	if cfg.SheetURL != "" {
		sheet = "linked"
	}

	timeout := "none"
	if cfg.TimeoutMinutes > 0 {
		timeout = fmt.Sprintf("%d minutes", cfg.TimeoutMinutes)
	}

	auto := "on"
	if !cfg.AutoEnabled {
		auto = "off"
	}

	var sb strings.Builder
	sb.WriteString("⚙️ Your current settings:\n\n")
	sb.WriteString(fmt.Sprintf("📚 Quiz mode: %s\n", cfg.Mode))
	sb.WriteString(fmt.Sprintf("⏳ Question interval: %d minutes\n", cfg.IntervalMinutes))
	sb.WriteString(fmt.Sprintf("⌛ Answer timeout: %s\n", timeout))
	sb.WriteString(fmt.Sprintf("🌙 Quiet hours: %s\n", cfg.Quiet))
	sb.WriteString(fmt.Sprintf("▶️ Automatic quizzes: %s\n", auto))
	sb.WriteString(fmt.Sprintf("🔗 Google Sheet: %s", sheet))
	return sb.String()
}

func newPlainMessage(chatID int64, text string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(chatID, text)
}
