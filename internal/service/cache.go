package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatsCache 仪表盘聚合结果缓存。Redis 为空时所有操作都是空操作
type StatsCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{Redis: rdb, TTL: ttl}
}

func instructorStatsKey(instructorID uint) string {
	return fmt.Sprintf("lms:stats:instructor:%d", instructorID)
}

func studentDashboardKey(studentID uint) string {
	return fmt.Sprintf("lms:dashboard:student:%d", studentID)
}

func (c *StatsCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.Redis == nil {
		return false
	}
	raw, err := c.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *StatsCache) Set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.Redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		logger.Log.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *StatsCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.Redis == nil || len(keys) == 0 {
		return
	}
	if err := c.Redis.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("stats cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
