package ddbsdk

import (
	"slices"

	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// SortKeyStrategy defines how to filter on the sort key in a range query.
type SortKeyStrategy func(skName string) expression.KeyConditionBuilder

// Between returns items where the sort key is between start and end (inclusive).
func Between[T any](start, end T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyBetween(expression.Key(skName), expression.Value(start), expression.Value(end))
	}
}

// GreaterThan returns items where the sort key is greater than the provided value.
func GreaterThan[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyGreaterThan(expression.Key(skName), expression.Value(v))
	}
}

// LessThan returns items where the sort key is less than the provided value.
func LessThan[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyLessThan(expression.Key(skName), expression.Value(v))
	}
}

// boundsStrategy turns exclusive integer bounds into a key condition. DynamoDB
// allows one comparison per sort key, so a two-sided window becomes an
// inclusive BETWEEN over the integers strictly inside it.
func boundsStrategy(q kv.Query) SortKeyStrategy {
	switch {
	case q.LessThan != nil && q.MoreThan != nil:
		return Between(*q.MoreThan+1, *q.LessThan-1)
	case q.LessThan != nil:
		return LessThan(*q.LessThan)
	case q.MoreThan != nil:
		return GreaterThan(*q.MoreThan)
	default:
		return nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
