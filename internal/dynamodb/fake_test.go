package dynamodb

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// fakeAPI is an in-memory stand-in for a single provisioned table.
type fakeAPI struct {
	mu sync.Mutex

	exists bool
	read   int64
	write  int64

	// confirm maps a requested write capacity to what the table reports
	// afterwards. Nil means the request is honoured.
	confirm func(requested int64) int64

	updates []int64
	creates int
	puts    []*dynamodb.PutItemInput
	putFn   func(ctx context.Context, in *dynamodb.PutItemInput) error

	queries []*dynamodb.QueryInput
	pages   []int32
}

func newFakeAPI(write int64) *fakeAPI {
	return &fakeAPI{exists: true, read: 5, write: write}
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.exists = true
	f.read = aws.ToInt64(in.ProvisionedThroughput.ReadCapacityUnits)
	f.write = aws.ToInt64(in.ProvisionedThroughput.WriteCapacityUnits)
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
		ProvisionedThroughput: &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  aws.Int64(f.read),
			WriteCapacityUnits: aws.Int64(f.write),
		},
	}}, nil
}

func (f *fakeAPI) UpdateTable(_ context.Context, in *dynamodb.UpdateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	requested := aws.ToInt64(in.ProvisionedThroughput.WriteCapacityUnits)
	f.updates = append(f.updates, requested)
	f.write = requested
	if f.confirm != nil {
		f.write = f.confirm(requested)
	}
	return &dynamodb.UpdateTableOutput{}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	f.puts = append(f.puts, in)
	fn := f.putFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, in); err != nil {
			return nil, err
		}
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.queries)
	f.queries = append(f.queries, in)
	if n >= len(f.pages) {
		return &dynamodb.QueryOutput{}, nil
	}
	out := &dynamodb.QueryOutput{Count: f.pages[n]}
	if n < len(f.pages)-1 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberN{Value: string(rune('0' + n))},
		}
	}
	return out, nil
}

func (f *fakeAPI) updateCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.updates...)
}

// throttled builds the error the SDK surfaces once retries are used up.
func throttled() error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusBadRequest}},
		Err: &smithy.GenericAPIError{
			Code:    "ProvisionedThroughputExceededException",
			Message: "The level of configured provisioned throughput for the table was exceeded",
		},
	}
}

var errBoom = errors.New("boom")
