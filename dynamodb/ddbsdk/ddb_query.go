package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const defaultPageSize = 100

type querier struct {
	awsddb     AWSDynamoClientV2
	table      table.TableDefinition
	partition  string
	strategy   SortKeyStrategy
	descending bool
	eventual   bool
	pageSize   int32

	lastCursor Item
	done       bool
}

type queryPage struct {
	Items  []Item
	IsDone bool
}

func (q *querier) next(ctx context.Context) (*queryPage, error) {
	key := expression.KeyEqual(expression.Key(q.table.KeyDefinitions.PartitionKey.Name), expression.Value(q.partition))
	if q.strategy != nil {
		key = key.And(q.strategy(q.table.KeyDefinitions.SortKey.Name))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	res, err := q.awsddb.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &q.table.Name,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeValues: expr.Values(),
		ExpressionAttributeNames:  expr.Names(),
		ConsistentRead:            ptr(!q.eventual),
		Limit:                     ptr(q.pageSize),
		ScanIndexForward:          ptr(!q.descending),
		ExclusiveStartKey:         q.lastCursor,
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	q.lastCursor = res.LastEvaluatedKey
	q.done = len(res.LastEvaluatedKey) == 0
	return &queryPage{Items: res.Items, IsDone: q.done}, nil
}

// Query pages through the partition until the limit is reached or the partition is exhausted.
func (c *Client) Query(ctx context.Context, t table.TableDefinition, partition string, q kv.Query) ([]kv.Record, error) {
	if q.LessThan != nil && q.MoreThan != nil && *q.MoreThan+1 > *q.LessThan-1 {
		return []kv.Record{}, nil
	}
	qr := &querier{
		awsddb:     c.awsddb,
		table:      t,
		partition:  partition,
		strategy:   boundsStrategy(q),
		descending: !q.Ascending,
		eventual:   c.eventual,
		pageSize:   defaultPageSize,
	}
	if q.Limit > 0 && q.Limit < defaultPageSize {
		qr.pageSize = int32(q.Limit)
	}

	items := []kv.Record{}
	for !qr.done {
		page, err := qr.next(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s partition %q: %w", t.Name, partition, err)
		}
		items = append(items, page.Items...)
		if q.Limit > 0 && len(items) >= q.Limit {
			items = items[:q.Limit]
			break
		}
	}
	c.log.Debug().Str("table", t.Name).Str("partition", partition).Int("items", len(items)).Msg("query")
	return items, nil
}
