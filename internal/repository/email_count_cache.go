package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sonic/internal/model"
)

// EmailCountCache fronts CountByStatus with a short-lived redis value. The
// pending count is only ever a snapshot (it is read once when a schedule
// session opens and never revalidated), so a TTL cache without invalidation
// changes nothing observable.
type EmailCountCache struct {
	*EmailRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewEmailCountCache(repo *EmailRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *EmailCountCache {
	return &EmailCountCache{
		EmailRepository: repo,
		rdb:             rdb,
		ttl:             ttl,
		logger:          logger,
	}
}

func (c *EmailCountCache) CountByStatus(ctx context.Context, status model.EmailStatus) (int, error) {
	key := "emails:count:" + string(status)

	if n, err := c.rdb.Get(ctx, key).Int(); err == nil {
		return n, nil
	}

	n, err := c.EmailRepository.CountByStatus(ctx, status)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, n, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache email count", zap.Error(err))
	}
	return n, nil
}
