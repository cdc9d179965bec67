package models

// AnswerEntry is one judged answer kept in the answer log
type AnswerEntry struct {
	UserID         int64
	GameID         string
	Category       Category
	QuestionNumber int
	AnswerNumber   int
	Correct        bool
	Timestamp      int64
}

// MissedQuestion counts how often a user got one question wrong
type MissedQuestion struct {
	Category       Category
	QuestionNumber int
	Misses         int
}

// LeaderboardEntry is one row of the best-streak leaderboard
type LeaderboardEntry struct {
	UserID           int64  `json:"user_id"`
	Username         string `json:"username,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	StreakBest       int    `json:"streak_best"`
	QuestionsCorrect int    `json:"questions_correct"`
	QuestionsTotal   int    `json:"questions_total"`
}
