// Package quiz implements the quiz session state machine on top of a
// durable per-user progress store.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/korjavin/examquizbot/models"
	"github.com/korjavin/examquizbot/questions"
	"github.com/looplab/fsm"
)

var (
	// ErrInvalidMode is returned when a quiz is started with an unknown mode
	ErrInvalidMode = models.ErrInvalidMode
	// ErrStoreUnavailable wraps every failure of the progress store
	ErrStoreUnavailable = errors.New("progress store unavailable")
)

// ProgressStore persists user records. Every method is atomic per user id.
type ProgressStore interface {
	GetOrCreate(ctx context.Context, userID int64) (models.UserRecord, error)
	// Lookup reads the record without creating it; ok is false for unknown users.
	Lookup(ctx context.Context, userID int64) (rec models.UserRecord, ok bool, err error)
	SetIdentity(ctx context.Context, userID int64, username, firstName string) error
	// Update applies fn to the record as one read-modify-write unit.
	// fn may run more than once and returns models.ErrUnchanged to skip the write.
	Update(ctx context.Context, userID int64, fn func(*models.UserRecord) error) (models.UserRecord, error)
}

// AnswerRecorder keeps a log of judged answers
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, e models.AnswerEntry) error
}

// Engine drives quiz sessions. It keeps no session state of its own.
type Engine struct {
	bank    *questions.Bank
	store   ProgressStore
	history AnswerRecorder
	locks   *userLocks
}

// NewEngine creates an engine; history may be nil
func NewEngine(bank *questions.Bank, store ProgressStore, history AnswerRecorder) *Engine {
	return &Engine{
		bank:    bank,
		store:   store,
		history: history,
		locks:   newUserLocks(),
	}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// Identify stores the user's display names
func (e *Engine) Identify(ctx context.Context, userID int64, username, firstName string) error {
	unlock := e.locks.lock(userID)
	defer unlock()

	if err := e.store.SetIdentity(ctx, userID, username, firstName); err != nil {
		return storeError("set identity", err)
	}
	return nil
}

// Snapshot returns the user's record for statistics displays
func (e *Engine) Snapshot(ctx context.Context, userID int64) (models.UserRecord, error) {
	rec, err := e.store.GetOrCreate(ctx, userID)
	if err != nil {
		return models.UserRecord{}, storeError("get user", err)
	}
	return rec, nil
}

// Lookup returns the user's record when the user has ever talked to the bot
func (e *Engine) Lookup(ctx context.Context, userID int64) (models.UserRecord, bool, error) {
	rec, ok, err := e.store.Lookup(ctx, userID)
	if err != nil {
		return models.UserRecord{}, false, storeError("lookup user", err)
	}
	return rec, ok, nil
}

// SelectMode starts a new game in mode, restarting any game in progress
func (e *Engine) SelectMode(ctx context.Context, userID int64, mode models.Mode) (*QuestionPresented, error) {
	if !mode.Playable() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	q, text := e.bank.DrawFor(mode)
	gameID := uuid.NewString()
	var m *fsm.FSM
	_, err := e.store.Update(ctx, userID, func(rec *models.UserRecord) error {
		m = newMachine(rec)
		return rec.Begin(mode, q, gameID)
	})
	if err != nil {
		return nil, storeError("begin quiz", err)
	}
	if err := fire(ctx, m, eventSelect); err != nil {
		return nil, err
	}

	return e.presented(mode, q, text), nil
}

// SubmitAnswer judges raw as the number of the active question.
// Submissions outside a quiz are ignored.
func (e *Engine) SubmitAnswer(ctx context.Context, userID int64, raw string) (*AnswerResult, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	var (
		res   *AnswerResult
		entry *models.AnswerEntry
		event string
		m     *fsm.FSM
	)
	_, err := e.store.Update(ctx, userID, func(rec *models.UserRecord) error {
		res, entry, event = &AnswerResult{}, nil, ""
		m = newMachine(rec)
		if !m.Can(eventAnswer) {
			res.Ignored = true
			return models.ErrUnchanged
		}

		asked := *rec.Active
		number, invalid := parseAnswer(raw, e.bank.MaxNumber(asked.Category))
		if invalid != nil {
			res.Invalid = invalid
			return models.ErrUnchanged
		}

		entry = &models.AnswerEntry{
			UserID:         userID,
			GameID:         rec.GameID,
			Category:       asked.Category,
			QuestionNumber: asked.Number,
			AnswerNumber:   number,
			Correct:        number == asked.Number,
		}

		if entry.Correct {
			r := rec.RecordCorrect()
			res.Correct = &AnswerCorrect{Streak: r.Streak, Best: r.Best, NewBest: r.NewBest}
			event = eventAnswer
			return e.advance(rec, res)
		}

		r := rec.RecordIncorrect()
		res.Incorrect = &AnswerIncorrect{CorrectNumber: asked.Number, Lives: r.Lives, GameOver: r.GameOver}
		if r.GameOver {
			res.GameOver = &GameOver{
				Best:     rec.StreakBest,
				Correct:  rec.QuestionsCorrect,
				Total:    rec.QuestionsTotal,
				Accuracy: rec.Accuracy(),
			}
			rec.End()
			event = eventLose
			return nil
		}
		event = eventAnswer
		return e.advance(rec, res)
	})
	if err != nil {
		return nil, storeError("record answer", err)
	}

	if event != "" {
		if err := fire(ctx, m, event); err != nil {
			return nil, err
		}
	}
	if entry != nil && e.history != nil {
		if err := e.history.RecordAnswer(ctx, *entry); err != nil {
			log.Printf("Error saving answer of user %d: %v", userID, err)
		}
	}
	return res, nil
}

// advance poses the next question of the record's mode
func (e *Engine) advance(rec *models.UserRecord, res *AnswerResult) error {
	q, text := e.bank.DrawFor(rec.Mode)
	if err := rec.SetActiveQuestion(q); err != nil {
		return err
	}
	res.Next = e.presented(rec.Mode, q, text)
	return nil
}

// Stop leaves the quiz. Streak counters are reported and kept.
func (e *Engine) Stop(ctx context.Context, userID int64) (*QuizStopped, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	var (
		stopped *QuizStopped
		m       *fsm.FSM
	)
	_, err := e.store.Update(ctx, userID, func(rec *models.UserRecord) error {
		m = newMachine(rec)
		stopped = &QuizStopped{Streak: rec.StreakCurrent, Best: rec.StreakBest}
		if !m.Can(eventStop) {
			return models.ErrUnchanged
		}
		rec.End()
		stopped.WasActive = true
		return nil
	})
	if err != nil {
		return nil, storeError("end quiz", err)
	}
	if stopped.WasActive {
		if err := fire(ctx, m, eventStop); err != nil {
			return nil, err
		}
	}
	return stopped, nil
}

func (e *Engine) presented(mode models.Mode, q models.ActiveQuestion, text string) *QuestionPresented {
	return &QuestionPresented{
		Mode:         mode,
		Category:     q.Category,
		Text:         text,
		ShowCategory: mode == models.ModeMixed,
	}
}

// parseAnswer reads a question number typed by the user
func parseAnswer(raw string, maxNumber int) (int, *InvalidInput) {
	s := strings.Trim(raw, " \t\r\n,")
	n, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &InvalidInput{Reason: OutOfRange, Max: maxNumber}
		}
		return 0, &InvalidInput{Reason: NotANumber, Max: maxNumber}
	}
	if n < 1 || n > maxNumber {
		return 0, &InvalidInput{Reason: OutOfRange, Max: maxNumber}
	}
	return n, nil
}
