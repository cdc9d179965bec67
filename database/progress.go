package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/examquizbot/models"
)

const userColumns = `user_id, username, first_name, current_streak, best_streak, total_questions,
	correct_answers, quiz_mode, question_number, question_category, lives_left, game_id, updated_at`

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetOrCreate returns the user's record, creating it with defaults on first use
func (db *DB) GetOrCreate(ctx context.Context, userID int64) (models.UserRecord, error) {
	if err := insertDefault(ctx, db.conn, userID); err != nil {
		return models.UserRecord{}, err
	}
	return db.selectUser(ctx, db.conn, userID, false)
}

// Lookup returns the user's record without creating it; ok is false for unknown users
func (db *DB) Lookup(ctx context.Context, userID int64) (models.UserRecord, bool, error) {
	rec, err := db.selectUser(ctx, db.conn, userID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, false, nil
	}
	if err != nil {
		return models.UserRecord{}, false, err
	}
	return rec, true, nil
}

// Update applies fn to the user's record inside one transaction.
// The row is created first if missing. When fn returns models.ErrUnchanged
// nothing is written and the stored record is returned.
func (db *DB) Update(ctx context.Context, userID int64, fn func(*models.UserRecord) error) (models.UserRecord, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.UserRecord{}, err
	}
	defer tx.Rollback()

	if err := insertDefault(ctx, tx, userID); err != nil {
		return models.UserRecord{}, err
	}
	rec, err := db.selectUser(ctx, tx, userID, true)
	if err != nil {
		return models.UserRecord{}, err
	}

	stored := rec
	if rec.Active != nil {
		q := *rec.Active
		stored.Active = &q
	}
	if err := fn(&rec); err != nil {
		if errors.Is(err, models.ErrUnchanged) {
			return stored, tx.Commit()
		}
		return models.UserRecord{}, err
	}
	if err := rec.Validate(); err != nil {
		return models.UserRecord{}, fmt.Errorf("user %d: %w", userID, err)
	}

	rec.UpdatedAt = time.Now().Unix()
	if err := writeUser(ctx, tx, rec); err != nil {
		return models.UserRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.UserRecord{}, err
	}
	return rec, nil
}

// SetIdentity stores the user's display names
func (db *DB) SetIdentity(ctx context.Context, userID int64, username, firstName string) error {
	_, err := db.Update(ctx, userID, func(r *models.UserRecord) error {
		if r.Username == username && r.FirstName == firstName {
			return models.ErrUnchanged
		}
		r.Username, r.FirstName = username, firstName
		return nil
	})
	return err
}

// BeginQuiz starts a new game with first as the posed question
func (db *DB) BeginQuiz(ctx context.Context, userID int64, mode models.Mode, first models.ActiveQuestion) (models.UserRecord, error) {
	return db.Update(ctx, userID, func(r *models.UserRecord) error {
		return r.Begin(mode, first, uuid.NewString())
	})
}

// SetActiveQuestion records the question currently posed to the user
func (db *DB) SetActiveQuestion(ctx context.Context, userID int64, q models.ActiveQuestion) (models.UserRecord, error) {
	return db.Update(ctx, userID, func(r *models.UserRecord) error {
		return r.SetActiveQuestion(q)
	})
}

// RecordCorrect extends the user's streak
func (db *DB) RecordCorrect(ctx context.Context, userID int64) (models.CorrectResult, error) {
	var res models.CorrectResult
	_, err := db.Update(ctx, userID, func(r *models.UserRecord) error {
		res = r.RecordCorrect()
		return nil
	})
	return res, err
}

// RecordIncorrect resets the user's streak and takes a life.
// The game ends in the same transaction when the last life is lost,
// so a later EndQuiz is a no-op.
func (db *DB) RecordIncorrect(ctx context.Context, userID int64) (models.IncorrectResult, error) {
	var res models.IncorrectResult
	_, err := db.Update(ctx, userID, func(r *models.UserRecord) error {
		res = r.RecordIncorrect()
		if res.GameOver {
			r.End()
		}
		return nil
	})
	return res, err
}

// EndQuiz leaves the quiz, keeping the streak counters
func (db *DB) EndQuiz(ctx context.Context, userID int64) (models.UserRecord, error) {
	return db.Update(ctx, userID, func(r *models.UserRecord) error {
		if !r.InQuiz() {
			return models.ErrUnchanged
		}
		r.End()
		return nil
	})
}

func insertDefault(ctx context.Context, q queryer, userID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (user_id, updated_at) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, time.Now().Unix(),
	)
	return err
}

func (db *DB) selectUser(ctx context.Context, q queryer, userID int64, forUpdate bool) (models.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	if forUpdate && db.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}

	var (
		rec      models.UserRecord
		mode     string
		number   int
		category string
	)
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID, &rec.Username, &rec.FirstName, &rec.StreakCurrent, &rec.StreakBest,
		&rec.QuestionsTotal, &rec.QuestionsCorrect, &mode, &number, &category,
		&rec.Lives, &rec.GameID, &rec.UpdatedAt,
	)
	if err != nil {
		return models.UserRecord{}, err
	}
	rec.Mode = models.Mode(mode)
	if number > 0 && category != "" {
		c, err := models.ParseCategory(category)
		if err != nil {
			return models.UserRecord{}, fmt.Errorf("user %d: %w", userID, err)
		}
		rec.Active = &models.ActiveQuestion{Number: number, Category: c}
	}
	return rec, nil
}

func writeUser(ctx context.Context, q queryer, rec models.UserRecord) error {
	var (
		number   int
		category string
	)
	if rec.Active != nil {
		number, category = rec.Active.Number, string(rec.Active.Category)
	}
	_, err := q.ExecContext(ctx, `
		UPDATE users SET
			username = $1, first_name = $2, current_streak = $3, best_streak = $4,
			total_questions = $5, correct_answers = $6, quiz_mode = $7, question_number = $8,
			question_category = $9, lives_left = $10, game_id = $11, updated_at = $12
		WHERE user_id = $13`,
		rec.Username, rec.FirstName, rec.StreakCurrent, rec.StreakBest,
		rec.QuestionsTotal, rec.QuestionsCorrect, string(rec.Mode), number,
		category, rec.Lives, rec.GameID, rec.UpdatedAt,
		rec.UserID,
	)
	return err
}
