package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/axai-ai/docstore/internal/platform/logger"
)

// Redis is a Redis-backed store for deployments where multiple processes
// should share the query cache. Selected with CACHE_BACKEND=redis.
type Redis struct {
	client *redis.Client
	log    *logger.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func NewRedis(addr, password string, db int, log *logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, log: log.With("service", "cache_redis")}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("cache get failed", "key", key, "error", err)
		}
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) InvalidatePrefix(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			r.log.Warn("cache invalidation scan failed", "prefix", prefix, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.log.Warn("cache invalidation delete failed", "prefix", prefix, "error", err)
				return
			}
			r.evictions.Add(int64(len(keys)))
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (r *Redis) Clear(ctx context.Context) {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		r.log.Warn("cache clear failed", "error", err)
	}
}

func (r *Redis) Stats() Stats {
	size, err := r.client.DBSize(context.Background()).Result()
	if err != nil {
		size = -1
	}
	return Stats{
		Hits:      r.hits.Load(),
		Misses:    r.misses.Load(),
		Entries:   int(size),
		Evictions: r.evictions.Load(),
	}
}

func (r *Redis) Close() error { return r.client.Close() }
