package utils

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Response cache key layout, shared with middlewares.ResponseCache.
const (
	EventListKeyPrefix = "cache:events:list:"
	EventItemKeyPrefix = "cache:events:item:"
)

// EventItemKey keeps the raw event id in the key so one event can be purged
// without touching the others.
func EventItemKey(id, variant string) string {
	return EventItemKeyPrefix + id + ":" + variant
}

type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) error {
	return ci.purge(ctx, EventListKeyPrefix+"*")
}

// PurgeEventItem drops the cached event and its cached comment list.
func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) error {
	return ci.purge(ctx, EventItemKeyPrefix+id+":*")
}

func (ci *CacheInvalidator) purge(ctx context.Context, pattern string) error {
	iter := ci.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return ci.rdb.Del(ctx, keys...).Err()
}
