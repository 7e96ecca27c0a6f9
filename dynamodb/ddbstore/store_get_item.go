package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/dgraph-io/badger/v4"
)

func (s *Store) GetItem(ctx context.Context, t table.TableDefinition, key table.PrimaryKey) (kv.Record, error) {
	def, err := s.table(t)
	if err != nil {
		return nil, err
	}
	k, err := encodeKey(def, key)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	var rec kv.Record
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readItem(txn, k)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	return rec, nil
}
