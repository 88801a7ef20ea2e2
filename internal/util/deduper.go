package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to acquire a dedup lock for a given handler + trigger ID.
// Returns true if this is the FIRST time processing, false on a duplicate.
// When redis is unavailable processing is allowed through rather than
// blocked; the status guard on the row keeps the operation idempotent.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, triggerID string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, triggerID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
