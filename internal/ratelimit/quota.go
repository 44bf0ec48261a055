package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaResult is the outcome of a daily quota check.
type QuotaResult struct {
	Allowed  bool
	Executed int64
	Limit    int64
}

// QuotaTracker counts executed commands per API key per UTC day via Redis.
type QuotaTracker struct {
	rdb *redis.Client
}

// NewQuotaTracker creates a quota tracker. If rdb is nil, all checks pass.
func NewQuotaTracker(rdb *redis.Client) *QuotaTracker {
	return &QuotaTracker{rdb: rdb}
}

func dailyQuotaKey(keyID string) string {
	day := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("cmdgw:quota:daily:%s:%s", keyID, day)
}

// CheckDailyQuota checks if the key is under its daily command limit.
func (q *QuotaTracker) CheckDailyQuota(ctx context.Context, keyID string, limit int64) (QuotaResult, error) {
	if q.rdb == nil {
		return QuotaResult{Allowed: true, Limit: limit}, nil
	}

	key := dailyQuotaKey(keyID)
	executed, err := q.rdb.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		// Fail open on Redis errors
		return QuotaResult{Allowed: true, Limit: limit}, nil
	}

	return QuotaResult{
		Allowed:  executed < limit,
		Executed: executed,
		Limit:    limit,
	}, nil
}

// RecordExecution increments the key's daily command counter.
func (q *QuotaTracker) RecordExecution(ctx context.Context, keyID string) error {
	if q.rdb == nil {
		return nil
	}

	key := dailyQuotaKey(keyID)
	pipe := q.rdb.Pipeline()
	pipe.Incr(ctx, key)
	// Expire at end of day UTC + 1 hour buffer
	now := time.Now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	ttl := endOfDay.Sub(now) + time.Hour
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}
