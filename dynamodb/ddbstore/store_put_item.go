package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/dgraph-io/badger/v4"
)

func (s *Store) PutItem(ctx context.Context, t table.TableDefinition, item kv.Record, mode kv.PutMode) error {
	def, err := s.table(t)
	if err != nil {
		return err
	}
	pk, err := def.ExtractPrimaryKey(item)
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	key, err := encodeKey(def, pk)
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}

	err = s.update(func(txn *badger.Txn) error {
		if mode != kv.PutOverwrite {
			existing, err := readItem(txn, key)
			if err != nil {
				return err
			}
			if existing != nil {
				if mode == kv.PutCreateIgnoreExisting {
					return nil
				}
				return kv.ErrConditionFailed
			}
		}
		return writeItem(txn, key, item)
	})
	if err != nil {
		return fmt.Errorf("put item %s (%s): %w", pk, mode, err)
	}
	return nil
}
