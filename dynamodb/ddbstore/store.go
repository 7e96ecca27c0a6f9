// Package ddbstore is a kv.Store backed by an embedded Badger database.
//
// It mirrors the conditional semantics of the DynamoDB backend so that local
// development and tests behave like production. Every write runs in a single
// read-write transaction; transactions that lose a conflict are replayed.
package ddbstore

import (
	"errors"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/dgraph-io/badger/v4"
)

type Store struct {
	db     *badger.DB
	tables map[string]table.TableDefinition
}

var _ kv.Store = &Store{}

// StoreOptions configures the Badger database.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for Badger. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens the database and registers the tables it may serve.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	tables := make(map[string]table.TableDefinition, len(defs))
	for _, def := range defs {
		tables[def.Name] = def
	}
	return &Store{db: db, tables: tables}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) table(t table.TableDefinition) (table.TableDefinition, error) {
	def, ok := s.tables[t.Name]
	if !ok {
		return table.TableDefinition{}, fmt.Errorf("table %q not registered", t.Name)
	}
	return def, nil
}

// update runs fn in a read-write transaction, replaying it while Badger
// reports a conflict with a concurrent transaction.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}

func readItem(txn *badger.Txn, key []byte) (kv.Record, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec kv.Record
	err = item.Value(func(val []byte) error {
		var derr error
		rec, derr = kv.DecodeRecord(val)
		return derr
	})
	return rec, err
}

func writeItem(txn *badger.Txn, key []byte, rec kv.Record) error {
	data, err := kv.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	return txn.Set(key, data)
}
