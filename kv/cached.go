package kv

import (
	"context"
	"fmt"
	"hash/fnv"
	"maps"
	"sync"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/rs/zerolog"
)

// Cache holds point lookups for a bounded time. Implementations live in package cache.
type Cache interface {
	// Get reports a miss with ok == false; err is reserved for backend failures.
	Get(ctx context.Context, key string) (rec Record, ok bool, err error)
	Set(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error
}

// CachedStore serves GetItem from a Cache and evicts an entry whenever the
// record behind it is written through this store. A read that overlaps a write
// to the same key does not populate the cache, so a stale record is never
// cached after its eviction. Writes made by other processes are only seen once
// the cache entry expires.
type CachedStore struct {
	Store
	cache Cache
	log   zerolog.Logger

	stripes [generationStripes]generation
}

const generationStripes = 64

// generation counts writes to the keys hashing onto it.
type generation struct {
	mu sync.Mutex
	n  uint64
}

var _ Store = &CachedStore{}

type CachedOption func(*CachedStore)

func WithCacheLogger(l zerolog.Logger) CachedOption {
	return func(c *CachedStore) {
		c.log = l
	}
}

// Cached wraps s with c. A nil cache returns s unchanged.
func Cached(s Store, c Cache, opts ...CachedOption) Store {
	if c == nil {
		return s
	}
	cs := &CachedStore{Store: s, cache: c, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

func cacheKey(t table.TableDefinition, key table.PrimaryKey) string {
	return t.Name + "/" + key.String()
}

func (c *CachedStore) generation(ck string) *generation {
	h := fnv.New32a()
	h.Write([]byte(ck))
	return &c.stripes[h.Sum32()%generationStripes]
}

func (c *CachedStore) GetItem(ctx context.Context, t table.TableDefinition, key table.PrimaryKey) (Record, error) {
	ck := cacheKey(t, key)
	rec, ok, err := c.cache.Get(ctx, ck)
	if err != nil {
		c.log.Warn().Err(err).Str("key", ck).Msg("cache get failed, reading through")
	} else if ok {
		return maps.Clone(rec), nil
	}

	gen := c.generation(ck)
	gen.mu.Lock()
	before := gen.n
	gen.mu.Unlock()

	rec, err = c.Store.GetItem(ctx, t, key)
	if err != nil || rec == nil {
		return rec, err
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if gen.n != before {
		c.log.Debug().Str("key", ck).Msg("write during read, not caching")
		return maps.Clone(rec), nil
	}
	if err := c.cache.Set(ctx, ck, rec); err != nil {
		c.log.Warn().Err(err).Str("key", ck).Msg("cache set failed")
	}
	return maps.Clone(rec), nil
}

func (c *CachedStore) PutItem(ctx context.Context, t table.TableDefinition, item Record, mode PutMode) error {
	key, err := t.ExtractPrimaryKey(item)
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	err = c.Store.PutItem(ctx, t, item, mode)
	return c.evict(ctx, t, key, err)
}

func (c *CachedStore) AppendToList(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, field, value string) error {
	err := c.Store.AppendToList(ctx, t, key, field, value)
	return c.evict(ctx, t, key, err)
}

func (c *CachedStore) IncrementFields(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, steps map[string]int64) (Record, error) {
	rec, err := c.Store.IncrementFields(ctx, t, key, steps)
	if err := c.evict(ctx, t, key, err); err != nil {
		return nil, err
	}
	return rec, nil
}

// evict drops the cached entry regardless of writeErr, since a failed write may
// still have been applied. writeErr takes precedence over an eviction failure.
func (c *CachedStore) evict(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, writeErr error) error {
	ck := cacheKey(t, key)
	gen := c.generation(ck)
	gen.mu.Lock()
	gen.n++
	delErr := c.cache.Delete(ctx, ck)
	gen.mu.Unlock()
	if writeErr != nil {
		return writeErr
	}
	if delErr != nil {
		return fmt.Errorf("invalidate cached %s: %w", key, delErr)
	}
	return nil
}
