package quiz

import "github.com/korjavin/examquizbot/models"

// QuestionPresented is emitted whenever a new question is posed
type QuestionPresented struct {
	Mode     models.Mode
	Category models.Category
	Text     string
	// ShowCategory is set in mixed mode, where the user must know which list to answer from
	ShowCategory bool
}

// InvalidReason tells why an answer was not judged
type InvalidReason string

const (
	NotANumber InvalidReason = "not a number"
	OutOfRange InvalidReason = "out of range"
)

// InvalidInput is emitted for an answer that is not a question number
type InvalidInput struct {
	Reason InvalidReason
	Max    int
}

// AnswerCorrect is emitted for a correct answer
type AnswerCorrect struct {
	Streak  int
	Best    int
	NewBest bool
}

// AnswerIncorrect is emitted for a wrong answer
type AnswerIncorrect struct {
	CorrectNumber int
	Lives         int
	GameOver      bool
}

// GameOver is emitted when the last life is lost. The streak is always
// reset by then, so only the best streak is reported.
type GameOver struct {
	Best     int
	Correct  int
	Total    int
	Accuracy float64
}

// QuizStopped is emitted when the user leaves the quiz
type QuizStopped struct {
	Streak    int
	Best      int
	WasActive bool
}

// AnswerResult collects the events produced by one answer submission.
// Exactly one of Ignored, Invalid, Correct and Incorrect is set; Next
// follows a judged answer unless GameOver is set.
type AnswerResult struct {
	Ignored   bool
	Invalid   *InvalidInput
	Correct   *AnswerCorrect
	Incorrect *AnswerIncorrect
	GameOver  *GameOver
	Next      *QuestionPresented
}
