package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/korjavin/examquizbot/models"
	"github.com/redis/go-redis/v9"
)

// TopStreaks returns the users with the highest best streak
func (s *Store) TopStreaks(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	top, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return nil, nil
	}

	keys := make([]string, len(top))
	for i, z := range top {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected leaderboard member %v", z.Member)
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, err
		}
		keys[i] = userKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]models.LeaderboardEntry, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		result = append(result, models.LeaderboardEntry{
			UserID:           rec.UserID,
			Username:         rec.Username,
			FirstName:        rec.FirstName,
			StreakBest:       rec.StreakBest,
			QuestionsCorrect: rec.QuestionsCorrect,
			QuestionsTotal:   rec.QuestionsTotal,
		})
	}
	return result, nil
}

func explanationKey(c models.Category, number int) string {
	return fmt.Sprintf(explanationKeyFm, c, number)
}

// CacheExplanation stores a generated explanation of a question
func (s *Store) CacheExplanation(ctx context.Context, c models.Category, number int, response string) error {
	return s.client.Set(ctx, explanationKey(c, number), response, 0).Err()
}

// CachedExplanation retrieves a cached explanation; ok is false when none is stored
func (s *Store) CachedExplanation(ctx context.Context, c models.Category, number int) (string, bool, error) {
	response, err := s.client.Get(ctx, explanationKey(c, number)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return response, true, nil
}
