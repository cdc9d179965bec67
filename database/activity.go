package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/korjavin/examquizbot/models"
)

// RecordAnswer appends a judged answer to the answer log
func (db *DB) RecordAnswer(ctx context.Context, e models.AnswerEntry) error {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO answer_log (user_id, game_id, category, question_number, answer_number, correct, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.UserID, e.GameID, string(e.Category), e.QuestionNumber, e.AnswerNumber, e.Correct, e.Timestamp,
	)
	return err
}

// HardestQuestions gets the questions the user most often answered incorrectly
func (db *DB) HardestQuestions(ctx context.Context, userID int64, limit int) ([]models.MissedQuestion, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT category, question_number, COUNT(*) AS misses
		FROM answer_log
		WHERE user_id = $1 AND correct = $2
		GROUP BY category, question_number
		ORDER BY misses DESC, category, question_number
		LIMIT $3`,
		userID, false, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MissedQuestion
	for rows.Next() {
		var (
			m        models.MissedQuestion
			category string
		)
		if err := rows.Scan(&category, &m.QuestionNumber, &m.Misses); err != nil {
			return nil, err
		}
		m.Category = models.Category(category)
		result = append(result, m)
	}
	return result, rows.Err()
}

// TopStreaks returns the users with the highest best streak
func (db *DB) TopStreaks(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, username, first_name, best_streak, correct_answers, total_questions
		FROM users
		WHERE best_streak > 0
		ORDER BY best_streak DESC, correct_answers DESC, user_id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.StreakBest, &e.QuestionsCorrect, &e.QuestionsTotal); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// CacheExplanation stores a generated explanation of a question
func (db *DB) CacheExplanation(ctx context.Context, c models.Category, number int, response string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO explanation_cache (category, question_number, response) VALUES ($1, $2, $3)
		ON CONFLICT (category, question_number) DO UPDATE SET response = excluded.response`,
		string(c), number, response,
	)
	return err
}

// CachedExplanation retrieves a cached explanation; ok is false when none is stored
func (db *DB) CachedExplanation(ctx context.Context, c models.Category, number int) (response string, ok bool, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT response FROM explanation_cache WHERE category = $1 AND question_number = $2`,
		string(c), number,
	).Scan(&response)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return response, true, nil
}
