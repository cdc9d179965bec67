package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/korjavin/examquizbot/models"
	"github.com/korjavin/examquizbot/quiz"
)

const (
	heartFull  = "❤️"
	heartEmpty = "🖤"

	maxListedQuestionLen = 60

	errorText = "❌ Something went wrong, please try again."
)

const welcomeTemplate = `🎓 <b>Welcome to the Exam Quiz Bot!</b>

Hi, %s! 👋

This bot helps you learn the numbers of your exam questions.

<b>How it works:</b>
• Choose a quiz mode
• The bot shows the text of a question
• You reply with the number of that question
• Keep your streak alive, you have 3 lives per game

Good luck with your preparation! 🍀`

const helpText = `📖 <b>Help</b>

<b>Commands:</b>
/start - Show the main menu
/help - Show this help
/stats - Show your statistics
/top - Show the best streaks
/explain - Get study notes for the current question
/stop - Stop the current quiz

<b>Quiz modes:</b>
🎓 <b>Specialty (15)</b> - questions 1-15
📚 <b>Direction (30)</b> - questions 1-30
🔀 <b>Mixed</b> - random questions from both lists, the list is shown with each question

<b>How to answer:</b>
Send the number of the question you see (1-15 or 1-30).
A wrong answer costs a life and resets the streak. After three wrong answers the game is over.`

func modeLabel(m models.Mode) string {
	switch m {
	case models.ModeSpecialty:
		return "🎓 Specialty (15)"
	case models.ModeDirection:
		return "📚 Direction (30)"
	case models.ModeMixed:
		return "🔀 Mixed"
	}
	return string(m)
}

func livesDisplay(lives int) string {
	var sb strings.Builder
	for i := 0; i < models.MaxLives; i++ {
		if i < lives {
			sb.WriteString(heartFull)
		} else {
			sb.WriteString(heartEmpty)
		}
	}
	return sb.String()
}

func displayName(firstName, username string, userID int64) string {
	switch {
	case firstName != "":
		return html.EscapeString(firstName)
	case username != "":
		return "@" + html.EscapeString(username)
	}
	return fmt.Sprintf("User %d", userID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func renderWelcome(firstName string) string {
	if firstName == "" {
		firstName = "there"
	}
	return fmt.Sprintf(welcomeTemplate, html.EscapeString(firstName))
}

// renderQuestion formats a posed question; source is the category label shown in mixed mode
func renderQuestion(p *quiz.QuestionPresented, source string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 <b>Mode:</b> %s\n", modeLabel(p.Mode))
	if p.ShowCategory {
		fmt.Fprintf(&sb, "📋 <b>Source:</b> %s\n", html.EscapeString(source))
	}
	fmt.Fprintf(&sb, "\n❓ <b>%s</b>\n\nSend the number of this question:", html.EscapeString(p.Text))
	return sb.String()
}

func renderInvalid(in *quiz.InvalidInput) string {
	if in.Reason == quiz.OutOfRange {
		return fmt.Sprintf("❌ The question number must be between 1 and %d", in.Max)
	}
	return "❌ Please send the question number (a number)"
}

func renderCorrect(c *quiz.AnswerCorrect) string {
	text := fmt.Sprintf("✅ <b>Correct!</b>\n\n🔥 Streak: <b>%d</b>\n🏆 Best: <b>%d</b>", c.Streak, c.Best)
	if c.NewBest {
		text += "\n\n🎉 <b>NEW RECORD!</b> 🎉"
	}
	return text
}

func renderIncorrect(in *quiz.AnswerIncorrect, over *quiz.GameOver) string {
	text := fmt.Sprintf("❌ <b>Wrong!</b>\n\nThe correct answer is <b>%d</b>\n\n🔥 <b>Lives:</b> %s\n💔 Streak reset.",
		in.CorrectNumber, livesDisplay(in.Lives))
	if over != nil {
		text += fmt.Sprintf(`

🎮 <b>GAME OVER!</b>

📊 <b>Final statistics:</b>
🏆 Best streak: <b>%d</b>
📈 Accuracy: <b>%.1f%%</b> (%d/%d)

Try again! 💪`, over.Best, over.Accuracy, over.Correct, over.Total)
	}
	return text
}

func renderStopped(s *quiz.QuizStopped) string {
	if !s.WasActive {
		return fmt.Sprintf("There is no quiz running.\n\n🔥 Current streak: <b>%d</b>\n🏆 Best streak: <b>%d</b>", s.Streak, s.Best)
	}
	return fmt.Sprintf(`⏹️ <b>Quiz stopped</b>

📊 <b>Your results:</b>
🔥 Current streak: <b>%d</b>
🏆 Best streak: <b>%d</b>

Thanks for practicing! 💪`, s.Streak, s.Best)
}

func renderMainMenu(firstName string, rec models.UserRecord) string {
	return fmt.Sprintf(`🎓 <b>Exam Quiz Bot - Main menu</b>

Hi, %s! 👋

📊 <b>Your statistics:</b>
🔥 Current streak: <b>%d</b>
🏆 Best streak: <b>%d</b>
📈 Correct answers: <b>%d</b>/%d

Choose an action:`, displayName(firstName, rec.Username, rec.UserID), rec.StreakCurrent, rec.StreakBest, rec.QuestionsCorrect, rec.QuestionsTotal)
}

// missedLine describes one often missed question for the statistics screen
type missedLine struct {
	Source string
	Number int
	Text   string
	Misses int
}

func renderStats(firstName string, rec models.UserRecord, missed []missedLine) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `📊 <b>Statistics</b>

👤 <b>User:</b> %s

🔥 <b>Streaks:</b>
   • Current: <b>%d</b>
   • Best: <b>%d</b>

📈 <b>Totals:</b>
   • Questions: <b>%d</b>
   • Correct: <b>%d</b>
   • Accuracy: <b>%.1f%%</b>`,
		displayName(firstName, rec.Username, rec.UserID),
		rec.StreakCurrent, rec.StreakBest,
		rec.QuestionsTotal, rec.QuestionsCorrect, rec.Accuracy())

	if rec.InQuiz() {
		fmt.Fprintf(&sb, "\n\n🎯 <b>Playing:</b> %s, lives %s", modeLabel(rec.Mode), livesDisplay(rec.Lives))
	}

	if len(missed) > 0 {
		sb.WriteString("\n\n🧩 <b>Most missed questions:</b>")
		for i, m := range missed {
			fmt.Fprintf(&sb, "\n%d. %s #%d (%d×): %s", i+1, html.EscapeString(m.Source), m.Number, m.Misses,
				html.EscapeString(truncate(m.Text, maxListedQuestionLen)))
		}
	}

	if rec.StreakBest >= 10 {
		sb.WriteString("\n\n🏆 <b>Great job!</b>")
	} else {
		sb.WriteString("\n\n💪 <b>Keep practicing!</b>")
	}
	return sb.String()
}

func renderLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 <b>Leaderboard</b>\n\nNobody has a streak yet. Be the first!"
	}
	var sb strings.Builder
	sb.WriteString("🏆 <b>Leaderboard</b>\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "\n%d. %s: <b>%d</b>", i+1, displayName(e.FirstName, e.Username, e.UserID), e.StreakBest)
	}
	return sb.String()
}

func renderExplanation(source, text string) string {
	return fmt.Sprintf("📘 <b>Study notes</b> (%s)\n\n%s", html.EscapeString(source), html.EscapeString(text))
}
