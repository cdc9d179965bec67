package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "github.com/mattn/go-sqlite3"    // driver: sqlite3
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Supported values of the DB_DRIVER setting
const (
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3, cgo
	DriverSQLite   = "sqlite"   // modernc.org/sqlite, pure Go
	DriverPostgres = "postgres" // jackc/pgx
)

// ErrUnsupportedDriver is returned by New for an unknown driver name
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// DB handles all database operations.
//
// SetIdentity, BeginQuiz, SetActiveQuestion, RecordCorrect, RecordIncorrect
// and EndQuiz are the per-operation contract, each one atomic on its own.
// The quiz engine composes multi-step events through Update instead.
type DB struct {
	conn   *sql.DB
	driver string
}

// New opens a database connection and initializes tables
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite3, DriverSQLite:
		sqlDriver = driver
		dsn = sqliteDSN(driver, dsn)
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
		sqlDriver = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/examquiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	conn, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, driver: driver}
	if err = db.createTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// sqliteDSN turns a bare file path into a DSN that takes the write lock
// when a transaction begins and waits on a busy database.
func sqliteDSN(driver, path string) string {
	if path == "" {
		path = "./data/examquiz.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	if driver == DriverSQLite3 {
		return path + "?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"
	}
	return path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// ensureDir creates the directory of the database file
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// createTables creates the necessary tables if they don't exist
func (db *DB) createTables(ctx context.Context) error {
	schema := schemaSQLite
	if db.driver == DriverPostgres {
		schema = schemaPostgres
	}
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

var schemaSQLite = []string{`
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		current_streak INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		quiz_mode TEXT NOT NULL DEFAULT 'none',
		question_number INTEGER NOT NULL DEFAULT 0,
		question_category TEXT NOT NULL DEFAULT '',
		lives_left INTEGER NOT NULL DEFAULT 3,
		game_id TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT 0,
		CHECK (best_streak >= current_streak),
		CHECK (correct_answers <= total_questions),
		CHECK (lives_left BETWEEN 0 AND 3)
	)`, `
	CREATE TABLE IF NOT EXISTS answer_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		game_id TEXT NOT NULL,
		category TEXT NOT NULL,
		question_number INTEGER NOT NULL,
		answer_number INTEGER NOT NULL,
		correct BOOLEAN NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS answer_log_user ON answer_log (user_id, correct)`, `
	CREATE TABLE IF NOT EXISTS explanation_cache (
		category TEXT NOT NULL,
		question_number INTEGER NOT NULL,
		response TEXT NOT NULL,
		PRIMARY KEY (category, question_number)
	)`,
}

var schemaPostgres = []string{`
	CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		current_streak INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		quiz_mode TEXT NOT NULL DEFAULT 'none',
		question_number INTEGER NOT NULL DEFAULT 0,
		question_category TEXT NOT NULL DEFAULT '',
		lives_left INTEGER NOT NULL DEFAULT 3,
		game_id TEXT NOT NULL DEFAULT '',
		updated_at BIGINT NOT NULL DEFAULT 0,
		CHECK (best_streak >= current_streak),
		CHECK (correct_answers <= total_questions),
		CHECK (lives_left BETWEEN 0 AND 3)
	)`, `
	CREATE TABLE IF NOT EXISTS answer_log (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		game_id TEXT NOT NULL,
		category TEXT NOT NULL,
		question_number INTEGER NOT NULL,
		answer_number INTEGER NOT NULL,
		correct BOOLEAN NOT NULL,
		timestamp BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS answer_log_user ON answer_log (user_id, correct)`, `
	CREATE TABLE IF NOT EXISTS explanation_cache (
		category TEXT NOT NULL,
		question_number INTEGER NOT NULL,
		response TEXT NOT NULL,
		PRIMARY KEY (category, question_number)
	)`,
}
