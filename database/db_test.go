package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/korjavin/examquizbot/models"
)

var sqliteDrivers = []string{DriverSQLite, DriverSQLite3}

func openTestDB(t *testing.T, driver, path string) *DB {
	t.Helper()
	db, err := New(context.Background(), driver, path)
	if err != nil {
		if driver == DriverSQLite3 && strings.Contains(err.Error(), "CGO_ENABLED") {
			t.Skip("mattn/go-sqlite3 needs cgo")
		}
		t.Fatalf("open %s: %v", driver, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// forEachDriver runs fn against a fresh database for every SQLite driver
func forEachDriver(t *testing.T, fn func(t *testing.T, db *DB)) {
	for _, driver := range sqliteDrivers {
		t.Run(driver, func(t *testing.T) {
			fn(t, openTestDB(t, driver, filepath.Join(t.TempDir(), "quiz.db")))
		})
	}
}

func mustValid(t *testing.T, db *DB, userID int64) models.UserRecord {
	t.Helper()
	rec, err := db.GetOrCreate(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("invariant broken: %v (%+v)", err, rec)
	}
	return rec
}

func TestLookupDoesNotCreate(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		if _, ok, err := db.Lookup(ctx, 31); err != nil || ok {
			t.Fatalf("Lookup(unknown) = %v, %v", ok, err)
		}
		var n int
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("Lookup inserted %d rows", n)
		}

		if err := db.SetIdentity(ctx, 31, "bob", "Bob"); err != nil {
			t.Fatal(err)
		}
		rec, ok, err := db.Lookup(ctx, 31)
		if err != nil || !ok || rec.UserID != 31 || rec.FirstName != "Bob" || rec.Lives != models.MaxLives {
			t.Fatalf("Lookup(known) = %+v, %v, %v", rec, ok, err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(context.Background(), "oracle", ""); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("err = %v", err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN(DriverSQLite3, "/tmp/q.db"); got != "file:/tmp/q.db?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on" {
		t.Fatalf("sqlite3 dsn = %q", got)
	}
	if got := sqliteDSN(DriverSQLite, "file:x.db?mode=memory"); got != "file:x.db?mode=memory" {
		t.Fatalf("explicit dsn rewritten: %q", got)
	}
}

func TestNewCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "quiz.db")
	db := openTestDB(t, DriverSQLite, path)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		first, err := db.GetOrCreate(ctx, 7)
		if err != nil {
			t.Fatal(err)
		}
		second, err := db.GetOrCreate(ctx, 7)
		if err != nil {
			t.Fatal(err)
		}
		want := models.NewUserRecord(7)
		want.UpdatedAt = first.UpdatedAt
		if first != want || second != want {
			t.Fatalf("records differ: %+v / %+v / %+v", first, second, want)
		}
	})
}

func TestQuizLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		const user = int64(100)

		if err := db.SetIdentity(ctx, user, "alice", "Alice"); err != nil {
			t.Fatal(err)
		}
		rec, err := db.BeginQuiz(ctx, user, models.ModeSpecialty, models.ActiveQuestion{Number: 7, Category: models.CategorySpecialty})
		if err != nil {
			t.Fatal(err)
		}
		if rec.Mode != models.ModeSpecialty || rec.Active.Number != 7 || rec.GameID == "" || rec.Lives != 3 {
			t.Fatalf("after begin: %+v", rec)
		}

		res, err := db.RecordCorrect(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if res != (models.CorrectResult{Streak: 1, Best: 1, NewBest: true}) {
			t.Fatalf("correct: %+v", res)
		}
		if _, err := db.SetActiveQuestion(ctx, user, models.ActiveQuestion{Number: 3, Category: models.CategorySpecialty}); err != nil {
			t.Fatal(err)
		}

		miss, err := db.RecordIncorrect(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if miss != (models.IncorrectResult{Lives: 2}) {
			t.Fatalf("incorrect: %+v", miss)
		}

		rec = mustValid(t, db, user)
		if rec.Username != "alice" || rec.FirstName != "Alice" {
			t.Fatalf("identity lost: %+v", rec)
		}
		if rec.StreakCurrent != 0 || rec.StreakBest != 1 || rec.QuestionsTotal != 2 || rec.QuestionsCorrect != 1 {
			t.Fatalf("counters: %+v", rec)
		}
		if rec.Active == nil || rec.Active.Number != 3 {
			t.Fatalf("active question: %+v", rec.Active)
		}

		rec, err = db.EndQuiz(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Mode != models.ModeNone || rec.Active != nil || rec.Lives != 3 || rec.StreakBest != 1 {
			t.Fatalf("after end: %+v", rec)
		}
	})
}

func TestThirdMissEndsGame(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		if _, err := db.BeginQuiz(ctx, 5, models.ModeDirection, models.ActiveQuestion{Number: 30, Category: models.CategoryDirection}); err != nil {
			t.Fatal(err)
		}
		for i, lives := range []int{2, 1, 0} {
			res, err := db.RecordIncorrect(ctx, 5)
			if err != nil {
				t.Fatal(err)
			}
			if res.Lives != lives || res.GameOver != (lives == 0) {
				t.Fatalf("miss %d: %+v", i, res)
			}
			mustValid(t, db, 5)
		}
		rec := mustValid(t, db, 5)
		if rec.InQuiz() || rec.Lives != models.MaxLives {
			t.Fatalf("game not ended: %+v", rec)
		}
		if rec, err := db.EndQuiz(ctx, 5); err != nil || rec.InQuiz() {
			t.Fatalf("EndQuiz after game over: %+v %v", rec, err)
		}
	})
}

func TestFailedUpdateWritesNothing(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		before := mustValid(t, db, 9)

		if _, err := db.SetActiveQuestion(ctx, 9, models.ActiveQuestion{Number: 1, Category: models.CategorySpecialty}); !errors.Is(err, models.ErrNotInQuiz) {
			t.Fatalf("SetActiveQuestion on idle user: %v", err)
		}
		_, err := db.Update(ctx, 9, func(r *models.UserRecord) error {
			r.QuestionsTotal = 10
			r.StreakCurrent = 3 // best stays 0
			return nil
		})
		if err == nil {
			t.Fatal("invalid record was persisted")
		}
		boom := errors.New("boom")
		if _, err := db.Update(ctx, 9, func(r *models.UserRecord) error {
			r.QuestionsTotal = 10
			return boom
		}); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}

		if after := mustValid(t, db, 9); after != before {
			t.Fatalf("record changed: %+v -> %+v", before, after)
		}
	})
}

func TestConcurrentUpdatesLoseNothing(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		const workers = 20

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := db.RecordCorrect(ctx, 1); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatal(err)
		}

		rec := mustValid(t, db, 1)
		if rec.StreakCurrent != workers || rec.StreakBest != workers || rec.QuestionsTotal != workers {
			t.Fatalf("lost updates: %+v", rec)
		}
	})
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.db")
	ctx := context.Background()

	db := openTestDB(t, DriverSQLite, path)
	if _, err := db.BeginQuiz(ctx, 77, models.ModeMixed, models.ActiveQuestion{Number: 11, Category: models.CategoryDirection}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	reopened := openTestDB(t, DriverSQLite, path)
	rec := mustValid(t, reopened, 77)
	if rec.Mode != models.ModeMixed || rec.Active == nil || *rec.Active != (models.ActiveQuestion{Number: 11, Category: models.CategoryDirection}) {
		t.Fatalf("state lost: %+v", rec)
	}
}

func TestAnswerLogAndLeaderboard(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		entries := []models.AnswerEntry{
			{UserID: 1, GameID: "g", Category: models.CategorySpecialty, QuestionNumber: 4, AnswerNumber: 5},
			{UserID: 1, GameID: "g", Category: models.CategorySpecialty, QuestionNumber: 4, AnswerNumber: 6},
			{UserID: 1, GameID: "g", Category: models.CategoryDirection, QuestionNumber: 2, AnswerNumber: 1},
			{UserID: 1, GameID: "g", Category: models.CategoryDirection, QuestionNumber: 9, AnswerNumber: 9, Correct: true},
			{UserID: 2, GameID: "h", Category: models.CategorySpecialty, QuestionNumber: 1, AnswerNumber: 2},
		}
		for _, e := range entries {
			if err := db.RecordAnswer(ctx, e); err != nil {
				t.Fatal(err)
			}
		}
		hardest, err := db.HardestQuestions(ctx, 1, 5)
		if err != nil {
			t.Fatal(err)
		}
		want := []models.MissedQuestion{
			{Category: models.CategorySpecialty, QuestionNumber: 4, Misses: 2},
			{Category: models.CategoryDirection, QuestionNumber: 2, Misses: 1},
		}
		if len(hardest) != len(want) {
			t.Fatalf("hardest = %+v", hardest)
		}
		for i := range want {
			if hardest[i] != want[i] {
				t.Fatalf("hardest[%d] = %+v, want %+v", i, hardest[i], want[i])
			}
		}

		for user, streak := range map[int64]int{10: 3, 11: 5, 12: 1} {
			for i := 0; i < streak; i++ {
				if _, err := db.RecordCorrect(ctx, user); err != nil {
					t.Fatal(err)
				}
			}
		}
		mustValid(t, db, 13)
		top, err := db.TopStreaks(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(top) != 2 || top[0].UserID != 11 || top[0].StreakBest != 5 || top[1].UserID != 10 {
			t.Fatalf("top = %+v", top)
		}
	})
}

func TestExplanationCache(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		if _, ok, err := db.CachedExplanation(ctx, models.CategorySpecialty, 3); err != nil || ok {
			t.Fatalf("empty cache: %v %v", ok, err)
		}
		if err := db.CacheExplanation(ctx, models.CategorySpecialty, 3, "first"); err != nil {
			t.Fatal(err)
		}
		if err := db.CacheExplanation(ctx, models.CategorySpecialty, 3, "second"); err != nil {
			t.Fatal(err)
		}
		got, ok, err := db.CachedExplanation(ctx, models.CategorySpecialty, 3)
		if err != nil || !ok || got != "second" {
			t.Fatalf("cached = %q %v %v", got, ok, err)
		}
		if _, ok, _ := db.CachedExplanation(ctx, models.CategoryDirection, 3); ok {
			t.Fatal("categories share cache entries")
		}
	})
}
