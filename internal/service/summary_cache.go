package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vina-edu/academic-api/internal/models"
)

// RedisSummaryCache keeps derived subject summaries in Redis. Every
// operation is advisory: a failed round-trip is logged and treated as a
// miss so the store remains the source of truth.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSummaryCache constructs a RedisSummaryCache.
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSummaryCache{client: client, ttl: ttl, logger: logger}
}

func summaryKey(scope models.GradeScope) string {
	return fmt.Sprintf("summary:%s:%s:%s:%s", scope.TermID, scope.ClassID, scope.StudentID, scope.SubjectID)
}

// GetSummary implements SummaryCache.
func (c *RedisSummaryCache) GetSummary(ctx context.Context, scope models.GradeScope) (*float64, bool) {
	raw, err := c.client.Get(ctx, summaryKey(scope)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("summary cache read failed", zap.Error(err))
		}
		return nil, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.logger.Warn("summary cache holds malformed value", zap.String("key", summaryKey(scope)), zap.String("raw", raw))
		return nil, false
	}
	return &value, true
}

// SetSummary implements SummaryCache.
func (c *RedisSummaryCache) SetSummary(ctx context.Context, scope models.GradeScope, value float64) {
	raw := strconv.FormatFloat(value, 'f', -1, 64)
	if err := c.client.Set(ctx, summaryKey(scope), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("summary cache write failed", zap.Error(err))
	}
}

// DeleteSummary implements SummaryCache.
func (c *RedisSummaryCache) DeleteSummary(ctx context.Context, scope models.GradeScope) {
	if err := c.client.Del(ctx, summaryKey(scope)).Err(); err != nil {
		c.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}
