package ddbstore

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

func (s *Store) AppendToList(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, field, value string) error {
	def, err := s.table(t)
	if err != nil {
		return err
	}
	k, err := encodeKey(def, key)
	if err != nil {
		return fmt.Errorf("append to list: %w", err)
	}

	err = s.update(func(txn *badger.Txn) error {
		rec, err := readItem(txn, k)
		if err != nil {
			return err
		}
		if rec == nil {
			return kv.ErrItemMissing
		}
		var list []types.AttributeValue
		if cur, ok := rec[field]; ok {
			l, ok := cur.(*types.AttributeValueMemberL)
			if !ok {
				return fmt.Errorf("field %q is %T, not a list", field, cur)
			}
			list = l.Value
		}
		for _, v := range list {
			if sv, ok := v.(*types.AttributeValueMemberS); ok && sv.Value == value {
				return nil
			}
		}
		next := make([]types.AttributeValue, 0, len(list)+1)
		next = append(next, list...)
		next = append(next, &types.AttributeValueMemberS{Value: value})
		rec[field] = &types.AttributeValueMemberL{Value: next}
		return writeItem(txn, k, rec)
	})
	if err != nil {
		return fmt.Errorf("append %q to %s.%s: %w", value, key, field, err)
	}
	return nil
}

func (s *Store) IncrementFields(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, steps map[string]int64) (kv.Record, error) {
	def, err := s.table(t)
	if err != nil {
		return nil, err
	}
	k, err := encodeKey(def, key)
	if err != nil {
		return nil, fmt.Errorf("increment fields: %w", err)
	}
	keyAttrs, err := key.DDB()
	if err != nil {
		return nil, fmt.Errorf("increment fields: %w", err)
	}

	var updated kv.Record
	err = s.update(func(txn *badger.Txn) error {
		rec, err := readItem(txn, k)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = maps.Clone(keyAttrs)
		}
		for field, step := range steps {
			cur := "0"
			if av, ok := rec[field]; ok {
				n, ok := av.(*types.AttributeValueMemberN)
				if !ok {
					return fmt.Errorf("field %q is %T, not a number", field, av)
				}
				cur = n.Value
			}
			next, err := addNumber(cur, step)
			if err != nil {
				return fmt.Errorf("field %q: %w", field, err)
			}
			rec[field] = &types.AttributeValueMemberN{Value: next}
		}
		updated = rec
		return writeItem(txn, k, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", key, err)
	}
	return updated, nil
}

func addNumber(cur string, step int64) (string, error) {
	if i, err := strconv.ParseInt(cur, 10, 64); err == nil {
		return strconv.FormatInt(i+step, 10), nil
	}
	f, err := strconv.ParseFloat(cur, 64)
	if err != nil {
		return "", fmt.Errorf("parse number %q: %w", cur, err)
	}
	return strconv.FormatFloat(f+float64(step), 'f', -1, 64), nil
}
