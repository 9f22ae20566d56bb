package ratewindow

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisWindowPrefix = "ratewindow/"

// RedisTracker keeps one sorted set per subject, scored by arrival time in
// microseconds. Key expiry replaces the in-memory sweep.
type RedisTracker struct {
	Client  *redis.Client
	idleTTL time.Duration
	seq     atomic.Uint64
}

func NewRedisTracker(redisURL string, idleTTL time.Duration) (*RedisTracker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &RedisTracker{Client: rdb, idleTTL: idleTTL}, nil
}

func (t *RedisTracker) Record(ctx context.Context, key string, now time.Time, span time.Duration) (int, error) {
	k := redisWindowPrefix + key
	cutoff := now.Add(-span).UnixMicro()
	member := fmt.Sprintf("%d-%d", now.UnixMicro(), t.seq.Add(1))

	ttl := t.idleTTL
	if span > ttl {
		ttl = span
	}

	multi := t.Client.TxPipeline()
	multi.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
	multi.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	card := multi.ZCard(ctx, k)
	multi.Expire(ctx, k, ttl)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (t *RedisTracker) Reset(ctx context.Context, key string) error {
	return t.Client.Del(ctx, redisWindowPrefix+key).Err()
}

func (t *RedisTracker) Close() error {
	return t.Client.Close()
}
