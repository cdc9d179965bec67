package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data of the inline buttons
const (
	cbStartQuiz   = "start_quiz"
	cbModePrefix  = "mode_"
	cbStopQuiz    = "stop_quiz"
	cbStatistics  = "statistics"
	cbLeaderboard = "leaderboard"
	cbHelp        = "help"
	cbBackToMain  = "back_to_main"
)

func button(text, data string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data))
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("🎯 Start quiz", cbStartQuiz),
		button("📊 Statistics", cbStatistics),
		button("🏆 Leaderboard", cbLeaderboard),
		button("ℹ️ Help", cbHelp),
	)
}

func modeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("🎓 Specialty (15)", cbModePrefix+"specialty"),
		button("📚 Direction (30)", cbModePrefix+"direction"),
		button("🔀 Mixed", cbModePrefix+"mixed"),
		button("⬅️ Back", cbBackToMain),
	)
}

func quizControlKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("⏹️ Stop quiz", cbStopQuiz),
		button("⬅️ Main menu", cbBackToMain),
	)
}

func backToMainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("⬅️ Main menu", cbBackToMain),
	)
}

func gameOverKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("🎯 Play again", cbStartQuiz),
		button("📊 Statistics", cbStatistics),
		button("⬅️ Main menu", cbBackToMain),
	)
}
