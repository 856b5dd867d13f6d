package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scenario-uploader/internal/scenario"
)

// Stats counts writes across every batch of a run. It is safe for
// concurrent use.
type Stats struct {
	Attempted atomic.Int64
	Written   atomic.Int64
	Failed    atomic.Int64
}

type Result struct {
	Attempted int
	Written   int
	Failed    int
}

// insertOnly keeps a write from replacing a stored record with the same
// key; every record carries a fresh id so this only trips on collisions.
var insertOnly = func() expression.Expression {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(SortKeyAttr))).
		Build()
	if err != nil {
		panic(fmt.Sprintf("building insert condition: %v", err))
	}
	return expr
}()

// WriteAll issues one PutItem per item, all at once unless a concurrency
// cap is configured, and returns when every write has settled. Failed
// writes are logged and counted; they never stop their siblings.
func (c *Client) WriteAll(ctx context.Context, table string, items []scenario.Item, stats *Stats) Result {
	if stats == nil {
		stats = &Stats{}
	}

	var written, failed atomic.Int64
	var g errgroup.Group
	if c.opts.Concurrency > 0 {
		g.SetLimit(c.opts.Concurrency)
	}

	for _, item := range items {
		stats.Attempted.Add(1)
		g.Go(func() error {
			// a panicking write counts as failed
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					stats.Failed.Add(1)
					c.logger.Error("write panicked",
						zap.Any("panic", r),
						zap.Int("scenario_id", item.PartitionKey),
						zap.String("id", item.ID))
				}
			}()
			if err := c.put(ctx, table, item); err != nil {
				failed.Add(1)
				stats.Failed.Add(1)
				c.logFailure(item, err)
				return nil
			}
			written.Add(1)
			stats.Written.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return Result{
		Attempted: len(items),
		Written:   int(written.Load()),
		Failed:    int(failed.Load()),
	}
}

func (c *Client) put(ctx context.Context, table string, item scenario.Item) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.MaxRetryWait)
	defer cancel()

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(table),
		Item:                      item.Payload,
		ConditionExpression:       insertOnly.Condition(),
		ExpressionAttributeNames:  insertOnly.Names(),
		ExpressionAttributeValues: insertOnly.Values(),
	})
	return err
}

func (c *Client) logFailure(item scenario.Item, err error) {
	status, code, message := describeError(err)
	c.logger.Error("write failed",
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("message", message),
		zap.Int("scenario_id", item.PartitionKey),
		zap.String("id", item.ID))
}

// describeError pulls the HTTP status and service error out of an SDK
// error. Status is zero when the request never got a response.
func describeError(err error) (int, string, string) {
	var status int
	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) {
		status = withStatus.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return status, apiErr.ErrorCode(), apiErr.ErrorMessage()
	}
	return status, "", err.Error()
}
