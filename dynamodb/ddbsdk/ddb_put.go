package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// put is a PutItem request under construction.
type put struct {
	table table.TableDefinition
	item  Item
	c     expression.ConditionBuilder
}

func newPut(t table.TableDefinition, item Item, mode kv.PutMode) *put {
	p := &put{table: t, item: item}
	if mode != kv.PutOverwrite {
		p.c = expression.AttributeNotExists(expression.Name(t.KeyDefinitions.PartitionKey.Name))
	}
	return p
}

func (p *put) toPutItem() (*dynamodb.PutItemInput, error) {
	if _, err := p.table.ExtractPrimaryKey(p.item); err != nil {
		return nil, fmt.Errorf("item has no valid primary key: %w", err)
	}
	in := &dynamodb.PutItemInput{
		TableName: &p.table.Name,
		Item:      p.item,
	}
	if !p.c.IsSet() {
		return in, nil
	}
	expr, err := expression.NewBuilder().WithCondition(p.c).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build put condition: %w", err)
	}
	in.ConditionExpression = expr.Condition()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

func (c *Client) PutItem(ctx context.Context, t table.TableDefinition, item kv.Record, mode kv.PutMode) error {
	in, err := newPut(t, item, mode).toPutItem()
	if err != nil {
		return err
	}
	_, err = c.awsddb.PutItem(ctx, in)
	if _, ok := isConditionalCheckFailed(err); ok {
		if mode == kv.PutCreateIgnoreExisting {
			c.log.Debug().Str("table", t.Name).Msg("put skipped, item exists")
			return nil
		}
		return fmt.Errorf("put item (%s): %w", mode, kv.ErrConditionFailed)
	}
	if err != nil {
		return fmt.Errorf("put item failed: %w", err)
	}
	return nil
}
