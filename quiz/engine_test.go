package quiz

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/korjavin/examquizbot/database"
	"github.com/korjavin/examquizbot/models"
	"github.com/korjavin/examquizbot/questions"
)

// sequence returns an intn that replays values, each taken modulo n
func sequence(values ...int) func(int) int {
	var mu sync.Mutex
	i := 0
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		v := values[i%len(values)]
		i++
		return v % n
	}
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []models.AnswerEntry
}

func (h *fakeHistory) RecordAnswer(_ context.Context, e models.AnswerEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func newTestEngine(t *testing.T, intn func(int) int) (*Engine, *database.DB, *fakeHistory) {
	t.Helper()
	db, err := database.New(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	history := &fakeHistory{}
	return NewEngine(questions.New(intn), db, history), db, history
}

func snapshot(t *testing.T, e *Engine, userID int64) models.UserRecord {
	t.Helper()
	rec, err := e.Snapshot(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("invariant broken: %v (%+v)", err, rec)
	}
	return rec
}

func submit(t *testing.T, e *Engine, userID int64, raw string) *AnswerResult {
	t.Helper()
	res, err := e.SubmitAnswer(context.Background(), userID, raw)
	if err != nil {
		t.Fatalf("SubmitAnswer(%q): %v", raw, err)
	}
	return res
}

func TestScenarioCorrectInvalidWrong(t *testing.T) {
	e, _, history := newTestEngine(t, sequence(6, 3, 9))
	ctx := context.Background()

	q, err := e.SelectMode(ctx, 1, models.ModeSpecialty)
	if err != nil {
		t.Fatal(err)
	}
	if q.Category != models.CategorySpecialty || q.ShowCategory || q.Text == "" {
		t.Fatalf("presented: %+v", q)
	}
	if rec := snapshot(t, e, 1); rec.Active.Number != 7 {
		t.Fatalf("active question = %+v", rec.Active)
	}

	res := submit(t, e, 1, "7")
	if res.Correct == nil || *res.Correct != (AnswerCorrect{Streak: 1, Best: 1, NewBest: true}) {
		t.Fatalf("correct: %+v", res.Correct)
	}
	if res.Next == nil || res.Incorrect != nil || res.GameOver != nil {
		t.Fatalf("result after correct: %+v", res)
	}

	res = submit(t, e, 1, "abc")
	if res.Invalid == nil || res.Invalid.Reason != NotANumber {
		t.Fatalf("invalid: %+v", res)
	}

	res = submit(t, e, 1, "3")
	if res.Incorrect == nil || *res.Incorrect != (AnswerIncorrect{CorrectNumber: 4, Lives: 2}) {
		t.Fatalf("incorrect: %+v", res.Incorrect)
	}
	if res.Next == nil || res.GameOver != nil {
		t.Fatalf("result after miss: %+v", res)
	}

	rec := snapshot(t, e, 1)
	if rec.Active.Number != 10 || rec.Lives != 2 || rec.StreakCurrent != 0 || rec.StreakBest != 1 {
		t.Fatalf("record: %+v", rec)
	}

	if len(history.entries) != 2 {
		t.Fatalf("history = %+v", history.entries)
	}
	if h := history.entries[1]; h.Correct || h.QuestionNumber != 4 || h.AnswerNumber != 3 || h.GameID != rec.GameID {
		t.Fatalf("logged miss = %+v", h)
	}
}

func TestStreakGrowsOnCorrectAnswers(t *testing.T) {
	e, _, _ := newTestEngine(t, sequence(0))
	if _, err := e.SelectMode(context.Background(), 2, models.ModeDirection); err != nil {
		t.Fatal(err)
	}
	for want := 1; want <= 10; want++ {
		res := submit(t, e, 2, "1")
		if res.Correct == nil || res.Correct.Streak != want || res.Correct.Best != want {
			t.Fatalf("answer %d: %+v", want, res.Correct)
		}
		snapshot(t, e, 2)
	}
}

func TestThreeMissesEndTheGame(t *testing.T) {
	e, _, _ := newTestEngine(t, sequence(0))
	if _, err := e.SelectMode(context.Background(), 3, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}
	submit(t, e, 3, "1")

	var last *AnswerResult
	for i, lives := range []int{2, 1, 0} {
		last = submit(t, e, 3, "2")
		if last.Incorrect == nil || last.Incorrect.Lives != lives || last.Incorrect.CorrectNumber != 1 {
			t.Fatalf("miss %d: %+v", i, last.Incorrect)
		}
		if lives > 0 && (last.GameOver != nil || last.Next == nil) {
			t.Fatalf("miss %d ended early: %+v", i, last)
		}
	}
	if last.GameOver == nil || last.Next != nil || !last.Incorrect.GameOver {
		t.Fatalf("no game over: %+v", last)
	}
	want := GameOver{Best: 1, Correct: 1, Total: 4, Accuracy: 25}
	if *last.GameOver != want {
		t.Fatalf("game over = %+v, want %+v", *last.GameOver, want)
	}

	rec := snapshot(t, e, 3)
	if rec.InQuiz() || rec.Lives != models.MaxLives {
		t.Fatalf("still in quiz: %+v", rec)
	}
	if res := submit(t, e, 3, "1"); !res.Ignored {
		t.Fatalf("answer after game over: %+v", res)
	}
}

func TestOutOfRangeLeavesStateUnchanged(t *testing.T) {
	e, _, history := newTestEngine(t, sequence(4))
	if _, err := e.SelectMode(context.Background(), 4, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}
	before := snapshot(t, e, 4)
	for _, raw := range []string{"0", "16", "-3", "99999999999999999999"} {
		res := submit(t, e, 4, raw)
		if res.Invalid == nil || res.Invalid.Reason != OutOfRange || res.Invalid.Max != 15 {
			t.Fatalf("%q: %+v", raw, res)
		}
	}
	if after := snapshot(t, e, 4); after.UpdatedAt != before.UpdatedAt || after.QuestionsTotal != 0 || after.Lives != 3 {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
	if len(history.entries) != 0 {
		t.Fatalf("invalid input logged: %+v", history.entries)
	}
}

func TestStopKeepsStreaks(t *testing.T) {
	e, _, _ := newTestEngine(t, sequence(2))
	ctx := context.Background()

	stopped, err := e.Stop(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if stopped.WasActive {
		t.Fatalf("idle stop reported active: %+v", stopped)
	}

	if _, err := e.SelectMode(ctx, 5, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}
	submit(t, e, 5, "3")
	submit(t, e, 5, "3")

	stopped, err = e.Stop(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if *stopped != (QuizStopped{Streak: 2, Best: 2, WasActive: true}) {
		t.Fatalf("stopped = %+v", stopped)
	}
	rec := snapshot(t, e, 5)
	if rec.InQuiz() || rec.StreakCurrent != 2 || rec.StreakBest != 2 {
		t.Fatalf("after stop: %+v", rec)
	}
	if res := submit(t, e, 5, "3"); !res.Ignored {
		t.Fatalf("answer while idle: %+v", res)
	}
}

func TestSelectModeRestartsGame(t *testing.T) {
	e, _, _ := newTestEngine(t, sequence(0))
	ctx := context.Background()
	if _, err := e.SelectMode(ctx, 6, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}
	submit(t, e, 6, "2")
	first := snapshot(t, e, 6)

	if _, err := e.SelectMode(ctx, 6, models.ModeDirection); err != nil {
		t.Fatal(err)
	}
	rec := snapshot(t, e, 6)
	if rec.Mode != models.ModeDirection || rec.Lives != 3 || rec.GameID == first.GameID {
		t.Fatalf("restart: %+v", rec)
	}
}

func TestMixedModeRangesByCategory(t *testing.T) {
	// coin 1 -> direction, question 25
	e, _, _ := newTestEngine(t, sequence(1, 24))
	q, err := e.SelectMode(context.Background(), 7, models.ModeMixed)
	if err != nil {
		t.Fatal(err)
	}
	if !q.ShowCategory || q.Category != models.CategoryDirection {
		t.Fatalf("presented: %+v", q)
	}
	res := submit(t, e, 7, "25")
	if res.Correct == nil {
		t.Fatalf("25 should be valid and correct in direction: %+v", res)
	}
}

func TestInvalidMode(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	for _, m := range []models.Mode{models.ModeNone, "history"} {
		if _, err := e.SelectMode(context.Background(), 8, m); !errors.Is(err, ErrInvalidMode) {
			t.Fatalf("SelectMode(%q) err = %v", m, err)
		}
	}
}

func TestConcurrentAnswersForOneUser(t *testing.T) {
	e, _, _ := newTestEngine(t, func(int) int { return 0 })
	ctx := context.Background()
	if _, err := e.SelectMode(ctx, 9, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.SubmitAnswer(ctx, 9, "1"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	rec := snapshot(t, e, 9)
	if rec.StreakCurrent != n || rec.QuestionsCorrect != n {
		t.Fatalf("lost updates: %+v", rec)
	}
	if e.locks.size() != 0 {
		t.Fatalf("locks leaked: %d", e.locks.size())
	}
}

// countingStore counts the store calls made through it
type countingStore struct {
	ProgressStore
	mu    sync.Mutex
	calls map[string]int
}

func (s *countingStore) count(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
}

func (s *countingStore) GetOrCreate(ctx context.Context, userID int64) (models.UserRecord, error) {
	s.count("GetOrCreate")
	return s.ProgressStore.GetOrCreate(ctx, userID)
}

func (s *countingStore) Lookup(ctx context.Context, userID int64) (models.UserRecord, bool, error) {
	s.count("Lookup")
	return s.ProgressStore.Lookup(ctx, userID)
}

func (s *countingStore) Update(ctx context.Context, userID int64, fn func(*models.UserRecord) error) (models.UserRecord, error) {
	s.count("Update")
	return s.ProgressStore.Update(ctx, userID, fn)
}

func TestSessionTransitionsAreSingleWrites(t *testing.T) {
	_, db, _ := newTestEngine(t, nil)
	store := &countingStore{ProgressStore: db, calls: map[string]int{}}
	e := NewEngine(questions.New(sequence(0)), store, nil)
	ctx := context.Background()

	if _, err := e.SelectMode(ctx, 12, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SelectMode(ctx, 12, models.ModeDirection); err != nil {
		t.Fatal(err)
	}
	stopped, err := e.Stop(ctx, 12)
	if err != nil {
		t.Fatal(err)
	}
	if !stopped.WasActive {
		t.Fatalf("stop after select: %+v", stopped)
	}
	if _, err := e.Stop(ctx, 12); err != nil {
		t.Fatal(err)
	}

	want := map[string]int{"Update": 4}
	if len(store.calls) != len(want) || store.calls["Update"] != want["Update"] {
		t.Fatalf("store calls = %v, want %v", store.calls, want)
	}
}

func TestLookupDoesNotCreateUsers(t *testing.T) {
	e, db, _ := newTestEngine(t, sequence(0))
	ctx := context.Background()

	if _, ok, err := e.Lookup(ctx, 13); err != nil || ok {
		t.Fatalf("Lookup(unknown) = %v, %v", ok, err)
	}
	if _, ok, err := db.Lookup(ctx, 13); err != nil || ok {
		t.Fatalf("lookup created the user: %v, %v", ok, err)
	}

	if _, err := e.SelectMode(ctx, 13, models.ModeSpecialty); err != nil {
		t.Fatal(err)
	}
	rec, ok, err := e.Lookup(ctx, 13)
	if err != nil || !ok || !rec.InQuiz() || rec.Mode != models.ModeSpecialty {
		t.Fatalf("Lookup(known) = %+v, %v, %v", rec, ok, err)
	}
}

type brokenStore struct{ err error }

func (s brokenStore) GetOrCreate(context.Context, int64) (models.UserRecord, error) {
	return models.UserRecord{}, s.err
}

func (s brokenStore) SetIdentity(context.Context, int64, string, string) error { return s.err }

func (s brokenStore) Lookup(context.Context, int64) (models.UserRecord, bool, error) {
	return models.UserRecord{}, false, s.err
}

func (s brokenStore) Update(context.Context, int64, func(*models.UserRecord) error) (models.UserRecord, error) {
	return models.UserRecord{}, s.err
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewEngine(questions.Default(), brokenStore{err: cause}, nil)
	ctx := context.Background()

	_, err1 := e.SelectMode(ctx, 1, models.ModeMixed)
	_, err2 := e.SubmitAnswer(ctx, 1, "3")
	_, err3 := e.Stop(ctx, 1)
	_, err4 := e.Snapshot(ctx, 1)
	err5 := e.Identify(ctx, 1, "bob", "Bob")
	_, _, err6 := e.Lookup(ctx, 1)
	for i, err := range []error{err1, err2, err3, err4, err5, err6} {
		if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, cause) {
			t.Fatalf("call %d: err = %v", i+1, err)
		}
	}
}

func TestParseAnswer(t *testing.T) {
	valid := map[string]int{"7": 7, " 7 ": 7, "7,": 7, ",12\n": 12, "007": 7, "+7": 7, "15": 15}
	for raw, want := range valid {
		n, inv := parseAnswer(raw, 15)
		if inv != nil || n != want {
			t.Errorf("parseAnswer(%q) = %d, %+v", raw, n, inv)
		}
	}
	invalid := map[string]InvalidReason{
		"":                     NotANumber,
		"seven":                NotANumber,
		"7.0":                  NotANumber,
		"1 2":                  NotANumber,
		"0":                    OutOfRange,
		"-1":                   OutOfRange,
		"16":                   OutOfRange,
		"99999999999999999999": OutOfRange,
	}
	for raw, reason := range invalid {
		if _, inv := parseAnswer(raw, 15); inv == nil || inv.Reason != reason || inv.Max != 15 {
			t.Errorf("parseAnswer(%q) = %+v, want %s", raw, inv, reason)
		}
	}
}
