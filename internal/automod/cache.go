package automod

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 5 * time.Minute
)

// guildCache is a TTL cache of per-guild, per-feature values. Loads are
// collapsed with singleflight; a load that races an invalidation of its
// guild is returned but not stored.
type guildCache[V any] struct {
	lru   *expirable.LRU[string, V]
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func newGuildCache[V any](size int, ttl time.Duration) *guildCache[V] {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &guildCache[V]{
		lru:  expirable.NewLRU[string, V](size, nil, ttl),
		gens: make(map[string]uint64),
	}
}

func (c *guildCache[V]) get(ctx context.Context, guildID, name string, load func(context.Context) (V, error)) (V, error) {
	key := guildID + "/" + name
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}

	gen := c.generation(guildID)
	res, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if c.generation(guildID) == gen {
			c.lru.Add(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// invalidate drops the named entries of a guild and fences off loads that
// started before the call.
func (c *guildCache[V]) invalidate(guildID string, names ...string) {
	c.mu.Lock()
	c.gens[guildID]++
	c.mu.Unlock()
	for _, name := range names {
		c.lru.Remove(guildID + "/" + name)
	}
}

func (c *guildCache[V]) generation(guildID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[guildID]
}
