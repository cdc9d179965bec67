package bot

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/examquizbot/models"
	"github.com/korjavin/examquizbot/questions"
	"github.com/korjavin/examquizbot/quiz"
)

const (
	cmdStart   = "start"
	cmdHelp    = "help"
	cmdStats   = "stats"
	cmdStop    = "stop"
	cmdTop     = "top"
	cmdExplain = "explain"

	leaderboardSize = 10
	hardestListSize = 3
)

// Sender is the part of the Telegram API the bot talks to
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Leaderboard lists the best streaks
type Leaderboard interface {
	TopStreaks(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// MissHistory reports the questions a user answers wrong most often
type MissHistory interface {
	HardestQuestions(ctx context.Context, userID int64, limit int) ([]models.MissedQuestion, error)
}

// Explainer writes study notes for a question
type Explainer interface {
	ExplainQuestion(ctx context.Context, topic, question string) (string, error)
}

// ExplanationCache keeps generated study notes
type ExplanationCache interface {
	CachedExplanation(ctx context.Context, c models.Category, number int) (string, bool, error)
	CacheExplanation(ctx context.Context, c models.Category, number int, response string) error
}

// Options holds the optional collaborators of the bot
type Options struct {
	Leaderboard Leaderboard
	History     MissHistory
	Explainer   Explainer
	Cache       ExplanationCache
	// NextQuestionDelay is the pause between answer feedback and the next question
	NextQuestionDelay time.Duration
}

// Bot represents the Telegram bot
type Bot struct {
	api    Sender
	engine *quiz.Engine
	bank   *questions.Bank
	opts   Options

	dispatch   *dispatcher
	background sync.WaitGroup
}

// New creates a new bot instance
func New(api Sender, engine *quiz.Engine, bank *questions.Bank, opts Options) *Bot {
	return &Bot{
		api:      api,
		engine:   engine,
		bank:     bank,
		opts:     opts,
		dispatch: newDispatcher(),
	}
}

// Run handles updates until ctx is cancelled or the channel is closed,
// then waits for the handlers in flight.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	log.Println("Starting bot polling...")
	defer b.wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			userID, ok := senderOf(update)
			if !ok {
				continue
			}
			b.dispatch.submit(userID, func() { b.handleUpdate(ctx, update) })
		}
	}
}

func (b *Bot) wait() {
	b.dispatch.wait()
	b.background.Wait()
}

func senderOf(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	}
	return 0, false
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	} else if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	userID := message.From.ID
	chatID := message.Chat.ID
	log.Printf("Received message from %s (ID: %d): %s", message.From.UserName, userID, message.Text)

	if !message.IsCommand() {
		if message.Text != "" {
			b.handleAnswer(ctx, chatID, userID, message.Text)
		}
		return
	}

	switch message.Command() {
	case cmdStart:
		if err := b.engine.Identify(ctx, userID, message.From.UserName, message.From.FirstName); err != nil {
			log.Printf("Error storing identity of user %d: %v", userID, err)
		}
		b.sendMessage(chatID, renderWelcome(message.From.FirstName), mainMenuKeyboard())
	case cmdHelp:
		b.sendMessage(chatID, helpText, mainMenuKeyboard())
	case cmdStats:
		b.sendMessage(chatID, b.statsText(ctx, userID, message.From.FirstName), backToMainKeyboard())
	case cmdStop:
		text, markup := b.stopQuiz(ctx, userID)
		b.sendMessage(chatID, text, markup)
	case cmdTop:
		b.sendMessage(chatID, b.leaderboardText(ctx), backToMainKeyboard())
	case cmdExplain:
		b.handleExplain(ctx, chatID, userID)
	default:
		b.sendMessage(chatID, "Unknown command. Use /start to open the menu or /help for assistance.", nil)
	}
}

// handleAnswer judges a text message as the answer to the active question
func (b *Bot) handleAnswer(ctx context.Context, chatID, userID int64, text string) {
	res, err := b.engine.SubmitAnswer(ctx, userID, text)
	if err != nil {
		log.Printf("Error judging answer of user %d: %v", userID, err)
		b.sendMessage(chatID, errorText, quizControlKeyboard())
		return
	}

	switch {
	case res.Ignored:
		return
	case res.Invalid != nil:
		b.sendMessage(chatID, renderInvalid(res.Invalid), quizControlKeyboard())
		return
	case res.Correct != nil:
		b.sendMessage(chatID, renderCorrect(res.Correct), nil)
	case res.Incorrect != nil:
		if res.GameOver != nil {
			b.sendMessage(chatID, renderIncorrect(res.Incorrect, res.GameOver), gameOverKeyboard())
			return
		}
		b.sendMessage(chatID, renderIncorrect(res.Incorrect, nil), nil)
	}

	if res.Next != nil {
		if !b.pause(ctx) {
			return
		}
		b.sendMessage(chatID, b.questionText(res.Next), quizControlKeyboard())
	}
}

// pause waits before the next question; false means ctx was cancelled
func (b *Bot) pause(ctx context.Context) bool {
	if b.opts.NextQuestionDelay <= 0 {
		return true
	}
	t := time.NewTimer(b.opts.NextQuestionDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.From == nil {
		return
	}
	userID := callback.From.ID
	log.Printf("Handling callback from user %s (ID: %d) with data: %s", callback.From.UserName, userID, callback.Data)

	b.sendCallbackResponse(callback.ID)

	switch data := callback.Data; {
	case data == cbStartQuiz:
		b.reply(callback, "🎯 <b>Choose a quiz mode</b>\n\n🎓 <b>Specialty (15)</b>\n📚 <b>Direction (30)</b>\n🔀 <b>Mixed</b>, random questions from both lists", modeKeyboard())
	case data == cbStatistics:
		b.reply(callback, b.statsText(ctx, userID, callback.From.FirstName), backToMainKeyboard())
	case data == cbLeaderboard:
		b.reply(callback, b.leaderboardText(ctx), backToMainKeyboard())
	case data == cbHelp:
		b.reply(callback, helpText, backToMainKeyboard())
	case data == cbBackToMain:
		rec, err := b.engine.Snapshot(ctx, userID)
		if err != nil {
			log.Printf("Error loading user %d: %v", userID, err)
			b.reply(callback, errorText, mainMenuKeyboard())
			return
		}
		b.reply(callback, renderMainMenu(callback.From.FirstName, rec), mainMenuKeyboard())
	case data == cbStopQuiz:
		text, markup := b.stopQuiz(ctx, userID)
		b.reply(callback, text, markup)
	case strings.HasPrefix(data, cbModePrefix):
		b.startQuiz(ctx, callback, strings.TrimPrefix(data, cbModePrefix))
	default:
		log.Printf("Invalid callback data: %s", data)
		b.reply(callback, "❌ Unknown command", backToMainKeyboard())
	}
}

func (b *Bot) startQuiz(ctx context.Context, callback *tgbotapi.CallbackQuery, raw string) {
	userID := callback.From.ID
	mode, err := models.ParseMode(raw)
	if err != nil {
		log.Printf("Invalid quiz mode from user %d: %q", userID, raw)
		b.reply(callback, "❌ Unknown command", backToMainKeyboard())
		return
	}

	p, err := b.engine.SelectMode(ctx, userID, mode)
	if err != nil {
		log.Printf("Error starting quiz for user %d: %v", userID, err)
		text := errorText
		if errors.Is(err, quiz.ErrInvalidMode) {
			text = "❌ Unknown command"
		}
		b.reply(callback, text, backToMainKeyboard())
		return
	}
	b.reply(callback, b.questionText(p), quizControlKeyboard())
}

func (b *Bot) stopQuiz(ctx context.Context, userID int64) (string, interface{}) {
	stopped, err := b.engine.Stop(ctx, userID)
	if err != nil {
		log.Printf("Error stopping quiz for user %d: %v", userID, err)
		return errorText, quizControlKeyboard()
	}
	return renderStopped(stopped), mainMenuKeyboard()
}

func (b *Bot) questionText(p *quiz.QuestionPresented) string {
	return renderQuestion(p, b.bank.DisplayName(p.Category))
}

func (b *Bot) statsText(ctx context.Context, userID int64, firstName string) string {
	rec, err := b.engine.Snapshot(ctx, userID)
	if err != nil {
		log.Printf("Error getting stats of user %d: %v", userID, err)
		return errorText
	}

	var lines []missedLine
	if b.opts.History != nil && rec.QuestionsTotal > rec.QuestionsCorrect {
		missed, err := b.opts.History.HardestQuestions(ctx, userID, hardestListSize)
		if err != nil {
			log.Printf("Error getting missed questions of user %d: %v", userID, err)
		}
		for _, m := range missed {
			text, ok := b.bank.Text(m.Category, m.QuestionNumber)
			if !ok {
				continue
			}
			lines = append(lines, missedLine{
				Source: b.bank.DisplayName(m.Category),
				Number: m.QuestionNumber,
				Text:   text,
				Misses: m.Misses,
			})
		}
	}
	return renderStats(firstName, rec, lines)
}

func (b *Bot) leaderboardText(ctx context.Context) string {
	if b.opts.Leaderboard == nil {
		return "🏆 The leaderboard is not available."
	}
	entries, err := b.opts.Leaderboard.TopStreaks(ctx, leaderboardSize)
	if err != nil {
		log.Printf("Error getting leaderboard: %v", err)
		return errorText
	}
	return renderLeaderboard(entries)
}

// handleExplain sends study notes for the user's current question,
// generating them in the background on a cache miss.
func (b *Bot) handleExplain(ctx context.Context, chatID, userID int64) {
	if b.opts.Explainer == nil {
		b.sendMessage(chatID, "Study notes are not enabled on this bot.", nil)
		return
	}
	rec, err := b.engine.Snapshot(ctx, userID)
	if err != nil {
		log.Printf("Error loading user %d: %v", userID, err)
		b.sendMessage(chatID, errorText, nil)
		return
	}
	if rec.Active == nil {
		b.sendMessage(chatID, "Start a quiz first, then use /explain on a question.", mainMenuKeyboard())
		return
	}

	q := *rec.Active
	text, ok := b.bank.Text(q.Category, q.Number)
	if !ok {
		log.Printf("User %d has unknown active question %s #%d", userID, q.Category, q.Number)
		b.sendMessage(chatID, errorText, nil)
		return
	}
	source := b.bank.DisplayName(q.Category)

	if b.opts.Cache != nil {
		cached, ok, err := b.opts.Cache.CachedExplanation(ctx, q.Category, q.Number)
		if err != nil {
			log.Printf("Error retrieving cached explanation: %v", err)
		}
		if ok {
			b.sendMessage(chatID, renderExplanation(source, cached), nil)
			return
		}
	}

	b.sendMessage(chatID, "Preparing study notes, please wait a moment...", nil)

	b.background.Add(1)
	go func() {
		defer b.background.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Recovered from panic in explanation goroutine: %v", r)
			}
		}()

		notes, err := b.opts.Explainer.ExplainQuestion(ctx, source, text)
		if err != nil {
			log.Printf("Error calling Deepseek API: %v", err)
			b.sendMessage(chatID, "Sorry, I couldn't prepare study notes. Please try again later.", nil)
			return
		}
		if b.opts.Cache != nil {
			if err := b.opts.Cache.CacheExplanation(ctx, q.Category, q.Number, notes); err != nil {
				log.Printf("Error caching explanation: %v", err)
			}
		}
		b.sendMessage(chatID, renderExplanation(source, notes), nil)
	}()
}

// reply edits the message carrying the pressed button, or sends a new one
func (b *Bot) reply(callback *tgbotapi.CallbackQuery, text string, markup interface{}) {
	if callback.Message == nil || callback.Message.Chat == nil {
		b.sendMessage(callback.From.ID, text, markup)
		return
	}

	edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if kb, ok := markup.(tgbotapi.InlineKeyboardMarkup); ok {
		edit.ReplyMarkup = &kb
	}
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message: %v", err)
		b.sendMessage(callback.Message.Chat.ID, text, markup)
	}
}

// sendMessage sends an HTML formatted text message
func (b *Bot) sendMessage(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// sendCallbackResponse acknowledges a callback query
func (b *Bot) sendCallbackResponse(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		log.Printf("Error sending callback response: %v", err)
	}
}
