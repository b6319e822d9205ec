package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TTLs per cached resource.
const (
	LessonsTTL      = 24 * time.Hour
	ChallengesTTL   = 12 * time.Hour
	StatsTTL        = 5 * time.Minute
	LeaderboardTTL  = time.Minute
	AchievementsTTL = time.Hour
	ProfileTTL      = 10 * time.Minute
)

// Key prefixes. Invalidation works on prefixes, so every key for a resource
// starts with its prefix.
const (
	LessonsPrefix      = "lessons:"
	ChallengesPrefix   = "challenges:"
	LeaderboardPrefix  = "leaderboard:"
	AchievementsPrefix = "achievements:"
	ProfilePrefix      = "profile:"
	StatsPrefix        = "stats:"
)

// Cache is a byte-oriented key/value store with TTLs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// GetJSON decodes a cached value into dst. A decode failure is reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}

// Fetch returns the cached value for key, or calls load and caches its result.
// Cache errors never fail the call; only load errors are returned.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if c != nil {
		if ok, err := GetJSON(ctx, c, key, &out); err == nil && ok {
			return out, nil
		}
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if c != nil {
		_ = SetJSON(ctx, c, key, out, ttl)
	}
	return out, nil
}
