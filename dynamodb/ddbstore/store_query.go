package ddbstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

func (s *Store) Query(ctx context.Context, t table.TableDefinition, partition string, q kv.Query) ([]kv.Record, error) {
	def, err := s.table(t)
	if err != nil {
		return nil, err
	}
	if (q.LessThan != nil || q.MoreThan != nil) && def.KeyDefinitions.SortKey.Kind != table.KeyKindN {
		return nil, fmt.Errorf("query %s: sort key bounds need a numeric sort key", def.Name)
	}
	prefix, err := partitionPrefix(def, partition)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	out := []kv.Record{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = !q.Ascending
		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		if opts.Reverse {
			start = prefixEnd(prefix)
		}
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec kv.Record
			err := it.Item().Value(func(val []byte) error {
				var derr error
				rec, derr = kv.DecodeRecord(val)
				return derr
			})
			if err != nil {
				return err
			}
			ok, err := withinBounds(rec[def.KeyDefinitions.SortKey.Name], q)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			out = append(out, rec)
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s partition %q: %w", def.Name, partition, err)
	}
	return out, nil
}

func withinBounds(sk types.AttributeValue, q kv.Query) (bool, error) {
	if q.LessThan == nil && q.MoreThan == nil {
		return true, nil
	}
	n, ok := sk.(*types.AttributeValueMemberN)
	if !ok {
		return false, fmt.Errorf("sort key is %T, not a number", sk)
	}
	v, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return false, err
	}
	if q.LessThan != nil && v >= float64(*q.LessThan) {
		return false, nil
	}
	if q.MoreThan != nil && v <= float64(*q.MoreThan) {
		return false, nil
	}
	return true, nil
}
