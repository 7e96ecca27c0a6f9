package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/acksell/foosball/kv"
	"github.com/dgraph-io/ristretto/v2"
)

type LocalConfig struct {
	// TTL bounds how long a record may be served without reading the store.
	TTL time.Duration
	// MaxItems caps the number of cached records.
	MaxItems int64
}

func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		TTL:      30 * time.Second,
		MaxItems: 10_000,
	}
}

// Local is an in-process cache. Writes become visible to Get asynchronously
// unless Wait is called.
type Local struct {
	c   *ristretto.Cache[string, kv.Record]
	ttl time.Duration
}

var _ kv.Cache = &Local{}

func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", cfg.TTL)
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultLocalConfig().MaxItems
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, kv.Record]{
		NumCounters: cfg.MaxItems * 10,
		MaxCost:     cfg.MaxItems,
		BufferItems: 64,
		// Every record costs 1, so MaxCost counts items.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Local{c: c, ttl: cfg.TTL}, nil
}

func (l *Local) Get(_ context.Context, key string) (kv.Record, bool, error) {
	rec, ok := l.c.Get(key)
	return rec, ok, nil
}

func (l *Local) Set(_ context.Context, key string, rec kv.Record) error {
	l.c.SetWithTTL(key, rec, 1, l.ttl)
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	l.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (l *Local) Wait() {
	l.c.Wait()
}

func (l *Local) Close() {
	l.c.Close()
}
