package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func (c *Client) GetItem(ctx context.Context, t table.TableDefinition, key table.PrimaryKey) (kv.Record, error) {
	k, err := key.DDB()
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	out, err := c.awsddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &t.Name,
		Key:            k,
		ConsistentRead: ptr(!c.eventual),
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}
