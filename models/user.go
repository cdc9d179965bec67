package models

import (
	"errors"
	"fmt"
)

// Mode is the quiz strategy a user has selected
type Mode string

const (
	ModeNone      Mode = "none"
	ModeSpecialty Mode = "specialty"
	ModeDirection Mode = "direction"
	ModeMixed     Mode = "mixed"
)

// MaxLives is the incorrect-answer budget of a single game
const MaxLives = 3

var (
	// ErrInvalidMode is returned for a mode string that names no quiz mode
	ErrInvalidMode = errors.New("invalid quiz mode")
	// ErrNotInQuiz is returned when a quiz-only change is applied to an idle user
	ErrNotInQuiz = errors.New("user is not in a quiz")
	// ErrUnchanged is returned by an update function to skip the write
	ErrUnchanged = errors.New("record unchanged")
)

// ParseMode converts a mode name into a playable Mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSpecialty, ModeDirection, ModeMixed:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Playable reports whether m starts a quiz
func (m Mode) Playable() bool {
	return m == ModeSpecialty || m == ModeDirection || m == ModeMixed
}

// UserRecord is the persisted quiz progress of one user
type UserRecord struct {
	UserID           int64           `json:"user_id"`
	Username         string          `json:"username,omitempty"`
	FirstName        string          `json:"first_name,omitempty"`
	StreakCurrent    int             `json:"streak_current"`
	StreakBest       int             `json:"streak_best"`
	QuestionsTotal   int             `json:"questions_total"`
	QuestionsCorrect int             `json:"questions_correct"`
	Mode             Mode            `json:"mode"`
	Active           *ActiveQuestion `json:"active_question,omitempty"`
	Lives            int             `json:"lives"`
	GameID           string          `json:"game_id,omitempty"`
	UpdatedAt        int64           `json:"updated_at"`
}

// NewUserRecord returns the default record for a user seen for the first time
func NewUserRecord(userID int64) UserRecord {
	return UserRecord{
		UserID: userID,
		Mode:   ModeNone,
		Lives:  MaxLives,
	}
}

// InQuiz reports whether the user has a game in progress
func (r *UserRecord) InQuiz() bool {
	return r.Mode != ModeNone
}

// Accuracy returns the share of correct answers in percent
func (r *UserRecord) Accuracy() float64 {
	if r.QuestionsTotal == 0 {
		return 0
	}
	return float64(r.QuestionsCorrect) / float64(r.QuestionsTotal) * 100
}

// CorrectResult is the outcome of recording a correct answer
type CorrectResult struct {
	Streak  int
	Best    int
	NewBest bool
}

// IncorrectResult is the outcome of recording an incorrect answer
type IncorrectResult struct {
	Lives    int
	GameOver bool
}

// Begin starts a new game in mode with first as the posed question
func (r *UserRecord) Begin(mode Mode, first ActiveQuestion, gameID string) error {
	if !mode.Playable() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	q := first
	r.Mode = mode
	r.Active = &q
	r.Lives = MaxLives
	r.GameID = gameID
	return nil
}

// SetActiveQuestion records the question currently posed
func (r *UserRecord) SetActiveQuestion(q ActiveQuestion) error {
	if !r.InQuiz() {
		return ErrNotInQuiz
	}
	r.Active = &q
	return nil
}

// RecordCorrect extends the streak and counts a correct answer
func (r *UserRecord) RecordCorrect() CorrectResult {
	r.StreakCurrent++
	newBest := r.StreakCurrent > r.StreakBest
	if newBest {
		r.StreakBest = r.StreakCurrent
	}
	r.QuestionsTotal++
	r.QuestionsCorrect++
	return CorrectResult{Streak: r.StreakCurrent, Best: r.StreakBest, NewBest: newBest}
}

// RecordIncorrect resets the streak, counts the answer and takes a life.
// The caller ends the game when GameOver is set.
func (r *UserRecord) RecordIncorrect() IncorrectResult {
	r.StreakCurrent = 0
	r.QuestionsTotal++
	if r.Lives > 0 {
		r.Lives--
	}
	return IncorrectResult{Lives: r.Lives, GameOver: r.Lives == 0}
}

// End leaves the quiz. Streak counters persist across games.
func (r *UserRecord) End() {
	r.Mode = ModeNone
	r.Active = nil
	r.Lives = MaxLives
	r.GameID = ""
}

// Validate checks the record invariants
func (r *UserRecord) Validate() error {
	switch {
	case r.StreakCurrent < 0 || r.StreakBest < 0 || r.QuestionsTotal < 0 || r.QuestionsCorrect < 0:
		return errors.New("negative counter")
	case r.StreakBest < r.StreakCurrent:
		return fmt.Errorf("best streak %d below current streak %d", r.StreakBest, r.StreakCurrent)
	case r.QuestionsCorrect > r.QuestionsTotal:
		return fmt.Errorf("correct answers %d exceed total %d", r.QuestionsCorrect, r.QuestionsTotal)
	case r.Lives < 0 || r.Lives > MaxLives:
		return fmt.Errorf("lives %d out of range", r.Lives)
	}
	if r.Mode == ModeNone {
		if r.Active != nil {
			return errors.New("idle user has an active question")
		}
		return nil
	}
	if !r.Mode.Playable() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, r.Mode)
	}
	if r.Active == nil {
		return errors.New("quiz in progress without an active question")
	}
	if r.Active.Number < 1 || !r.Active.Category.Valid() {
		return fmt.Errorf("bad active question %+v", *r.Active)
	}
	if r.Lives == 0 {
		return errors.New("quiz in progress without lives")
	}
	return nil
}
