package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	PartitionKeyAttr = "scenario_id"
	SortKeyAttr      = "id"
)

// ThroughputMismatchError reports that the table did not confirm the
// requested write capacity.
type ThroughputMismatchError struct {
	Table     string
	Requested int64
	Current   int64
}

func (e *ThroughputMismatchError) Error() string {
	return fmt.Sprintf("failed to set throughput of %s to %d WCU, currently at %d WCU", e.Table, e.Requested, e.Current)
}

// EnsureTable creates the table keyed by scenario_id/id when it does not
// exist yet. An existing table is left as it is.
func (c *Client) EnsureTable(ctx context.Context, table string, readCapacity, writeCapacity int64) (bool, error) {
	_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	_, err = c.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(PartitionKeyAttr), AttributeType: types.ScalarAttributeTypeN},
			{AttributeName: aws.String(SortKeyAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(PartitionKeyAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(SortKeyAttr), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModeProvisioned,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(readCapacity),
			WriteCapacityUnits: aws.Int64(writeCapacity),
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	if err := c.waitActive(ctx, table); err != nil {
		return true, err
	}
	c.logger.Info("table created", zap.String("table", table), zap.Int64("wcu", writeCapacity))
	return true, nil
}

// Throughput returns the table's provisioned read and write capacity.
func (c *Client) Throughput(ctx context.Context, table string) (int64, int64, error) {
	out, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	if out.Table == nil || out.Table.ProvisionedThroughput == nil {
		return 0, 0, nil
	}
	pt := out.Table.ProvisionedThroughput
	return aws.ToInt64(pt.ReadCapacityUnits), aws.ToInt64(pt.WriteCapacityUnits), nil
}

// SetThroughput replaces the table's write capacity, keeping its read
// capacity, and confirms the new value by reading it back.
func (c *Client) SetThroughput(ctx context.Context, table string, writeCapacity int64) error {
	read, write, err := c.Throughput(ctx, table)
	if err != nil {
		return err
	}

	if write != writeCapacity {
		if read < 1 {
			read = 1
		}
		_, err = c.api.UpdateTable(ctx, &dynamodb.UpdateTableInput{
			TableName: aws.String(table),
			ProvisionedThroughput: &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(read),
				WriteCapacityUnits: aws.Int64(writeCapacity),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to update throughput of %s: %w", table, err)
		}
		if err := c.waitActive(ctx, table); err != nil {
			return err
		}
	}

	_, current, err := c.Throughput(ctx, table)
	if err != nil {
		return err
	}
	if current != writeCapacity {
		return &ThroughputMismatchError{Table: table, Requested: writeCapacity, Current: current}
	}

	c.logger.Info("throughput set", zap.String("table", table), zap.Int64("wcu", current))
	return nil
}

// WithThroughput raises the table to high, runs fn and lowers the table to
// baseline on every way out of fn, panics included.
func (c *Client) WithThroughput(ctx context.Context, table string, high, baseline int64, fn func(context.Context) error) (err error) {
	defer func() {
		lerr := c.SetThroughput(context.WithoutCancel(ctx), table, baseline)
		if lerr != nil {
			c.logger.Error("failed to restore throughput", zap.String("table", table), zap.Int64("wcu", baseline), zap.Error(lerr))
			err = errors.Join(err, lerr)
		}
	}()

	if err := c.SetThroughput(ctx, table, high); err != nil {
		return err
	}
	return fn(ctx)
}

func (c *Client) waitActive(ctx context.Context, table string) error {
	waiter := dynamodb.NewTableExistsWaiter(c.api)
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, c.opts.TableWait)
	if err != nil {
		return fmt.Errorf("table %s did not become active: %w", table, err)
	}
	return nil
}
