// Package redisstore keeps quiz progress in Redis, one JSON value per user,
// using WATCH/MULTI transactions with optimistic retry.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/examquizbot/models"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix    = "quiz:user:"
	leaderboardKey   = "quiz:leaderboard"
	explanationKeyFm = "quiz:explanation:%s:%d"

	maxRetries = 16
)

// ErrConflict is returned when an update keeps losing the optimistic race
var ErrConflict = errors.New("redisstore: too many concurrent updates")

// Store implements the progress store on a Redis client.
//
// SetIdentity, BeginQuiz, SetActiveQuestion, RecordCorrect, RecordIncorrect
// and EndQuiz are the per-operation contract, each one atomic on its own.
// The quiz engine composes multi-step events through Update instead.
type Store struct {
	client *redis.Client
}

// New creates a store over client
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Connect dials Redis and verifies the connection
func Connect(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client), nil
}

// Close closes the Redis client
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks that Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func userKey(userID int64) string {
	return userKeyPrefix + strconv.FormatInt(userID, 10)
}

func decode(data string) (models.UserRecord, error) {
	var rec models.UserRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return models.UserRecord{}, err
	}
	return rec, nil
}

// GetOrCreate returns the user's record, creating it with defaults on first use
func (s *Store) GetOrCreate(ctx context.Context, userID int64) (models.UserRecord, error) {
	key := userKey(userID)
	rec := models.NewUserRecord(userID)
	rec.UpdatedAt = time.Now().Unix()
	data, err := json.Marshal(rec)
	if err != nil {
		return models.UserRecord{}, err
	}
	if err := s.client.SetNX(ctx, key, data, 0).Err(); err != nil {
		return models.UserRecord{}, err
	}
	stored, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return models.UserRecord{}, err
	}
	return decode(stored)
}

// Lookup returns the user's record without creating it; ok is false for unknown users
func (s *Store) Lookup(ctx context.Context, userID int64) (models.UserRecord, bool, error) {
	data, err := s.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.UserRecord{}, false, nil
	}
	if err != nil {
		return models.UserRecord{}, false, err
	}
	rec, err := decode(data)
	if err != nil {
		return models.UserRecord{}, false, err
	}
	return rec, true, nil
}

// Update applies fn to the user's record in a WATCH/MULTI transaction,
// retrying when another writer got there first.
func (s *Store) Update(ctx context.Context, userID int64, fn func(*models.UserRecord) error) (models.UserRecord, error) {
	key := userKey(userID)
	var out models.UserRecord

	txf := func(tx *redis.Tx) error {
		rec := models.NewUserRecord(userID)
		data, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			rec.UpdatedAt = time.Now().Unix()
		case err != nil:
			return err
		default:
			if rec, err = decode(data); err != nil {
				return err
			}
		}

		stored := rec
		if err := fn(&rec); err != nil {
			if errors.Is(err, models.ErrUnchanged) {
				out = stored
				return nil
			}
			return err
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}

		rec.UpdatedAt = time.Now().Unix()
		encoded, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			if rec.StreakBest > 0 {
				pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(rec.StreakBest), Member: userID})
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = rec
		return nil
	}

	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.UserRecord{}, err
	}
	return models.UserRecord{}, ErrConflict
}

// SetIdentity stores the user's display names
func (s *Store) SetIdentity(ctx context.Context, userID int64, username, firstName string) error {
	_, err := s.Update(ctx, userID, func(r *models.UserRecord) error {
		if r.Username == username && r.FirstName == firstName {
			return models.ErrUnchanged
		}
		r.Username, r.FirstName = username, firstName
		return nil
	})
	return err
}

// BeginQuiz starts a new game with first as the posed question
func (s *Store) BeginQuiz(ctx context.Context, userID int64, mode models.Mode, first models.ActiveQuestion) (models.UserRecord, error) {
	gameID := uuid.NewString()
	return s.Update(ctx, userID, func(r *models.UserRecord) error {
		return r.Begin(mode, first, gameID)
	})
}

// SetActiveQuestion records the question currently posed to the user
func (s *Store) SetActiveQuestion(ctx context.Context, userID int64, q models.ActiveQuestion) (models.UserRecord, error) {
	return s.Update(ctx, userID, func(r *models.UserRecord) error {
		return r.SetActiveQuestion(q)
	})
}

// RecordCorrect extends the user's streak
func (s *Store) RecordCorrect(ctx context.Context, userID int64) (models.CorrectResult, error) {
	var res models.CorrectResult
	_, err := s.Update(ctx, userID, func(r *models.UserRecord) error {
		res = r.RecordCorrect()
		return nil
	})
	return res, err
}

// RecordIncorrect resets the user's streak and takes a life, ending the
// game in the same transaction when the last life is lost.
func (s *Store) RecordIncorrect(ctx context.Context, userID int64) (models.IncorrectResult, error) {
	var res models.IncorrectResult
	_, err := s.Update(ctx, userID, func(r *models.UserRecord) error {
		res = r.RecordIncorrect()
		if res.GameOver {
			r.End()
		}
		return nil
	})
	return res, err
}

// EndQuiz leaves the quiz, keeping the streak counters
func (s *Store) EndQuiz(ctx context.Context, userID int64) (models.UserRecord, error) {
	return s.Update(ctx, userID, func(r *models.UserRecord) error {
		if !r.InQuiz() {
			return models.ErrUnchanged
		}
		r.End()
		return nil
	})
}
