package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

// versionTTL outlives any cached entry so an expired counter cannot resurrect old results.
const versionTTL = 7 * 24 * time.Hour

// AnalyticsCache stores computed analytics per user, period and cache version.
type AnalyticsCache struct {
	rdb *redis.Client
}

func NewAnalyticsCache(rdb *redis.Client) *AnalyticsCache {
	return &AnalyticsCache{rdb: rdb}
}

func versionKey(userID string) string { return "analytics_ver:" + userID }

func analyticsKey(userID string, version int64, period int) string {
	return fmt.Sprintf("analytics:%s:v%d:%d", userID, version, period)
}

func (c *AnalyticsCache) version(ctx context.Context, userID string) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *AnalyticsCache) Get(ctx context.Context, userID string, period int) (*entity.SymptomAnalytics, int64, bool, error) {
	ver, err := c.version(ctx, userID)
	if err != nil {
		return nil, 0, false, err
	}
	var a entity.SymptomAnalytics
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, analyticsKey(userID, ver, period), &a)
	if err != nil || !ok {
		return nil, ver, false, err
	}
	return &a, ver, true, nil
}

func (c *AnalyticsCache) Set(ctx context.Context, userID string, period int, version int64, a *entity.SymptomAnalytics, ttl time.Duration) error {
	return helpers.RedisSetJSON(ctx, c.rdb, analyticsKey(userID, version, period), a, ttl)
}

// Invalidate bumps the user's version, then drops the entries of older versions.
func (c *AnalyticsCache) Invalidate(ctx context.Context, userID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, versionKey(userID))
	pipe.Expire(ctx, versionKey(userID), versionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	_, err := helpers.RedisDelMatch(ctx, c.rdb, "analytics:"+userID+":*")
	return err
}
