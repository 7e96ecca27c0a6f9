package kv_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/acksell/foosball/dynamodb/ddbstore"
	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tables = table.ForDeployment("test")

// mapCache records traffic so tests can observe hits and evictions.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]kv.Record
	hits    int
	deletes []string
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]kv.Record{}}
}

func (m *mapCache) Get(_ context.Context, key string) (kv.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	rec, ok := m.entries[key]
	if ok {
		m.hits++
	}
	return rec, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, rec kv.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = rec
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func newStore(t *testing.T) *ddbstore.Store {
	s, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, tables.All()...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func player(name string) kv.Record {
	return kv.Record{
		"id":   &types.AttributeValueMemberS{Value: "player:" + name},
		"name": &types.AttributeValueMemberS{Value: name},
	}
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	backing := newStore(t)
	c := newMapCache()
	store := kv.Cached(backing, c)
	key := tables.Models.Key("player:foo", nil)

	require.NoError(t, store.PutItem(ctx, tables.Models, player("foo"), kv.PutOverwrite))

	t.Run("second read is a hit", func(t *testing.T) {
		_, err := store.GetItem(ctx, tables.Models, key)
		require.NoError(t, err)
		rec, err := store.GetItem(ctx, tables.Models, key)
		require.NoError(t, err)
		require.Equal(t, player("foo"), rec)
		require.Equal(t, 1, c.hits)
	})

	t.Run("misses are not cached", func(t *testing.T) {
		rec, err := store.GetItem(ctx, tables.Models, tables.Models.Key("player:ghost", nil))
		require.NoError(t, err)
		require.Nil(t, rec)
		require.NotContains(t, c.entries, "test-models/player:ghost")
	})

	t.Run("increment evicts", func(t *testing.T) {
		_, err := store.IncrementFields(ctx, tables.Models, key, map[string]int64{"statNumberOfGames": 1})
		require.NoError(t, err)
		rec, err := store.GetItem(ctx, tables.Models, key)
		require.NoError(t, err)
		require.Equal(t, &types.AttributeValueMemberN{Value: "1"}, rec["statNumberOfGames"])
	})

	t.Run("append evicts", func(t *testing.T) {
		require.NoError(t, store.PutItem(ctx, tables.Models, kv.Record{"id": &types.AttributeValueMemberS{Value: "series:bar"}}, kv.PutOverwrite))
		_, err := store.GetItem(ctx, tables.Models, tables.Models.Key("series:bar", nil))
		require.NoError(t, err)

		require.NoError(t, store.AppendToList(ctx, tables.Models, tables.Models.Key("series:bar", nil), "players", "player:foo"))
		rec, err := store.GetItem(ctx, tables.Models, tables.Models.Key("series:bar", nil))
		require.NoError(t, err)
		require.Contains(t, rec, "players")
	})

	t.Run("failed writes still evict", func(t *testing.T) {
		before := len(c.deletes)
		err := store.PutItem(ctx, tables.Models, player("foo"), kv.PutCreate)
		require.ErrorIs(t, err, kv.ErrConditionFailed)
		require.Len(t, c.deletes, before+1)
		assert.Equal(t, "test-models/player:foo", c.deletes[before])
	})

	t.Run("returned records are copies", func(t *testing.T) {
		rec, err := store.GetItem(ctx, tables.Models, key)
		require.NoError(t, err)
		rec["name"] = &types.AttributeValueMemberS{Value: "mutated"}
		again, err := store.GetItem(ctx, tables.Models, key)
		require.NoError(t, err)
		require.Equal(t, &types.AttributeValueMemberS{Value: "foo"}, again["name"])
	})

	t.Run("cache failure reads through", func(t *testing.T) {
		c.getErr = errors.New("cache down")
		defer func() { c.getErr = nil }()
		rec, err := store.GetItem(ctx, tables.Models, key)
		require.NoError(t, err)
		require.NotNil(t, rec)
	})
}

// pausingStore lets a test hold one GetItem after it has read the backing store.
type pausingStore struct {
	kv.Store
	read    chan struct{}
	proceed chan struct{}
}

func (p *pausingStore) GetItem(ctx context.Context, t table.TableDefinition, key table.PrimaryKey) (kv.Record, error) {
	rec, err := p.Store.GetItem(ctx, t, key)
	close(p.read)
	<-p.proceed
	return rec, err
}

func TestCachedReadOverlappingWrite(t *testing.T) {
	ctx := context.Background()
	backing := newStore(t)
	require.NoError(t, backing.PutItem(ctx, tables.Models, player("foo"), kv.PutOverwrite))

	paused := &pausingStore{Store: backing, read: make(chan struct{}), proceed: make(chan struct{})}
	c := newMapCache()
	store := kv.Cached(paused, c)
	key := tables.Models.Key("player:foo", nil)

	type result struct {
		rec kv.Record
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := store.GetItem(ctx, tables.Models, key)
		done <- result{rec, err}
	}()

	<-paused.read
	updated := player("foo")
	updated["name"] = &types.AttributeValueMemberS{Value: "renamed"}
	require.NoError(t, store.PutItem(ctx, tables.Models, updated, kv.PutOverwrite))
	close(paused.proceed)

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, player("foo"), res.rec)
	c.mu.Lock()
	require.NotContains(t, c.entries, "test-models/player:foo")
	c.mu.Unlock()

	rec, err := backing.GetItem(ctx, tables.Models, key)
	require.NoError(t, err)
	require.Equal(t, &types.AttributeValueMemberS{Value: "renamed"}, rec["name"])
}

func TestCachedWithNilCache(t *testing.T) {
	backing := newStore(t)
	require.Same(t, backing, kv.Cached(backing, nil))
}

func TestRecordCodec(t *testing.T) {
	rec := kv.Record{
		"id":      &types.AttributeValueMemberS{Value: "series:bar"},
		"empty":   &types.AttributeValueMemberS{Value: ""},
		"n":       &types.AttributeValueMemberN{Value: "12"},
		"ok":      &types.AttributeValueMemberBOOL{Value: false},
		"nothing": &types.AttributeValueMemberNULL{Value: true},
		"players": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "player:foo"},
		}},
		"none":  &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		"props": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		"tags":  &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
	}
	data, err := kv.EncodeRecord(rec)
	require.NoError(t, err)
	got, err := kv.DecodeRecord(data)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}
