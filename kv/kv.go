// Package kv defines the key-value/range store the entity model persists through.
//
// Two implementations exist: dynamodb/ddbsdk talks to DynamoDB, dynamodb/ddbstore
// keeps everything in a local Badger database. Both honour the same conditional
// semantics so the model layer never needs to know which one it runs on.
package kv

import (
	"context"
	"errors"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Record is a stored item in DynamoDB attribute form.
type Record = map[string]types.AttributeValue

var (
	// ErrConditionFailed signals that a create-only write found an existing record.
	ErrConditionFailed = errors.New("kv: condition failed")
	// ErrItemMissing signals that an update required a record which does not exist.
	ErrItemMissing = errors.New("kv: item missing")
)

type PutMode int

const (
	// PutOverwrite replaces any existing record.
	PutOverwrite PutMode = iota
	// PutCreate fails with ErrConditionFailed if the record exists.
	PutCreate
	// PutCreateIgnoreExisting leaves an existing record untouched and reports success.
	PutCreateIgnoreExisting
)

func (m PutMode) String() string {
	switch m {
	case PutOverwrite:
		return "overwrite"
	case PutCreate:
		return "create"
	case PutCreateIgnoreExisting:
		return "create-ignore-existing"
	default:
		return "unknown"
	}
}

// Query bounds a range query on a partition. The zero value returns the whole
// partition, most recent sort key first.
type Query struct {
	// Limit caps the number of records returned. Zero or negative means no cap.
	Limit int
	// Ascending flips the default descending sort key order.
	Ascending bool
	// LessThan and MoreThan are exclusive bounds on a numeric sort key.
	LessThan *int64
	MoreThan *int64
}

// Store is the persistence capability required by the model layer.
type Store interface {
	// GetItem returns nil, nil when no record exists for key.
	GetItem(ctx context.Context, t table.TableDefinition, key table.PrimaryKey) (Record, error)
	// PutItem writes item, whose primary key attributes must be set.
	PutItem(ctx context.Context, t table.TableDefinition, item Record, mode PutMode) error
	// AppendToList appends value to the string list in field unless it is already
	// present. It returns ErrItemMissing if the record does not exist.
	AppendToList(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, field, value string) error
	// IncrementFields atomically adds each step to its numeric field, treating
	// missing fields as zero, and returns the updated record.
	IncrementFields(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, steps map[string]int64) (Record, error)
	// Query returns the records of one partition ordered by sort key. It never returns nil on success.
	Query(ctx context.Context, t table.TableDefinition, partition string, q Query) ([]Record, error)
}

// Int64 is a convenience for building Query bounds.
func Int64(v int64) *int64 {
	return &v
}
