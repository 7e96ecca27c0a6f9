package ddbsdk

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"golang.org/x/exp/constraints"
)

type UpdateOp interface {
	Field() string
	Apply(expression.UpdateBuilder) expression.UpdateBuilder
	IsIdempotent() bool
}

// conditionedOp is an UpdateOp that only applies while its condition holds.
type conditionedOp interface {
	UpdateOp
	Condition() expression.ConditionBuilder
}

type number interface {
	constraints.Integer | constraints.Float
}

// addNumberOp adds a value to a numeric field, creating it at zero if missing.
type addNumberOp[T number] struct {
	field string
	value T
}

var _ UpdateOp = addNumberOp[int64]{}

func AddNumberOp[T number](field string, value T) addNumberOp[T] {
	return addNumberOp[T]{
		field: field,
		value: value,
	}
}

func (o addNumberOp[T]) Field() string {
	return o.field
}

func (o addNumberOp[T]) IsIdempotent() bool {
	return false
}

func (o addNumberOp[T]) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	return expr.Add(expression.Name(o.field), expression.Value(o.value))
}

// appendIfAbsentOp appends a string to a list field unless the list already holds it.
// Replaying it is harmless, so it counts as idempotent.
type appendIfAbsentOp struct {
	field string
	value string
}

var _ conditionedOp = appendIfAbsentOp{}

func AppendIfAbsentOp(field, value string) appendIfAbsentOp {
	return appendIfAbsentOp{
		field: field,
		value: value,
	}
}

func (o appendIfAbsentOp) Field() string {
	return o.field
}

func (o appendIfAbsentOp) IsIdempotent() bool {
	return true
}

func (o appendIfAbsentOp) Apply(expr expression.UpdateBuilder) expression.UpdateBuilder {
	name := expression.Name(o.field)
	list := expression.IfNotExists(name, expression.Value([]string{}))
	return expr.Set(name, expression.ListAppend(list, expression.Value([]string{o.value})))
}

func (o appendIfAbsentOp) Condition() expression.ConditionBuilder {
	return expression.Not(expression.Contains(expression.Name(o.field), o.value))
}
