package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// update is an UpdateItem request under construction.
type update struct {
	table table.TableDefinition
	key   table.PrimaryKey
	ops   []UpdateOp
	c     expression.ConditionBuilder

	allowNonIdempotent bool
	returnValues       types.ReturnValue
	returnOnFailure    types.ReturnValuesOnConditionCheckFailure
}

func newUpdate(t table.TableDefinition, key table.PrimaryKey) *update {
	return &update{table: t, key: key}
}

func (u *update) addOp(op UpdateOp) *update {
	u.ops = append(u.ops, op)
	if co, ok := op.(conditionedOp); ok {
		u.withCondition(co.Condition())
	}
	return u
}

func (u *update) withCondition(c expression.ConditionBuilder) *update {
	if u.c.IsSet() {
		u.c = u.c.And(c)
	} else {
		u.c = c
	}
	return u
}

// withAccidentalIdempotency allows non-idempotent operations such as AddNumberOp.
// A retried request applies them twice.
func (u *update) withAccidentalIdempotency() *update {
	u.allowNonIdempotent = true
	return u
}

func (u *update) build() (expression.Expression, error) {
	if len(u.ops) == 0 {
		return expression.Expression{}, fmt.Errorf("update of %s has no operations", u.key)
	}
	var ub expression.UpdateBuilder
	seen := make(map[string]bool, len(u.ops))
	for _, op := range u.ops {
		if seen[op.Field()] {
			return expression.Expression{}, fmt.Errorf("field %s updated twice", op.Field())
		}
		seen[op.Field()] = true
		if !u.allowNonIdempotent && !op.IsIdempotent() {
			return expression.Expression{}, fmt.Errorf("can't apply non-idempotent operation unless explicitly allowed: %T", op)
		}
		ub = op.Apply(ub)
	}
	b := expression.NewBuilder().WithUpdate(ub)
	if u.c.IsSet() {
		b = b.WithCondition(u.c)
	}
	e, err := b.Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build: %w", err)
	}
	return e, nil
}

func (u *update) toUpdateItem() (*dynamodb.UpdateItemInput, error) {
	e, err := u.build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}
	key, err := u.key.DDB()
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:                           &u.table.Name,
		Key:                                 key,
		UpdateExpression:                    e.Update(),
		ConditionExpression:                 e.Condition(),
		ExpressionAttributeValues:           e.Values(),
		ExpressionAttributeNames:            e.Names(),
		ReturnValues:                        u.returnValues,
		ReturnValuesOnConditionCheckFailure: u.returnOnFailure,
	}, nil
}

// AppendToList requires the record to exist. When the condition fails, the old
// item returned by DynamoDB tells an already-present value from a missing record.
func (c *Client) AppendToList(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, field, value string) error {
	u := newUpdate(t, key).
		withCondition(expression.AttributeExists(expression.Name(t.KeyDefinitions.PartitionKey.Name))).
		addOp(AppendIfAbsentOp(field, value))
	u.returnOnFailure = types.ReturnValuesOnConditionCheckFailureAllOld

	in, err := u.toUpdateItem()
	if err != nil {
		return err
	}
	_, err = c.awsddb.UpdateItem(ctx, in)
	if ccf, ok := isConditionalCheckFailed(err); ok {
		if len(ccf.Item) == 0 {
			return fmt.Errorf("append to %s: %w", key, kv.ErrItemMissing)
		}
		c.log.Debug().Str("key", key.String()).Str("field", field).Msg("value already in list")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

func (c *Client) IncrementFields(ctx context.Context, t table.TableDefinition, key table.PrimaryKey, steps map[string]int64) (kv.Record, error) {
	u := newUpdate(t, key).withAccidentalIdempotency()
	for _, field := range sortedKeys(steps) {
		u.addOp(AddNumberOp(field, steps[field]))
	}
	u.returnValues = types.ReturnValueAllNew

	in, err := u.toUpdateItem()
	if err != nil {
		return nil, err
	}
	out, err := c.awsddb.UpdateItem(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return out.Attributes, nil
}
