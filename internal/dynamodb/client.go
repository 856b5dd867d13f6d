package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/ratelimit"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts  = 30
	DefaultMaxRetryWait = 100 * time.Second
	DefaultMaxBackoff   = 5 * time.Second
	DefaultTableWait    = 5 * time.Minute
)

// API is the part of the DynamoDB service client the loader calls.
type API interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type Options struct {
	Region   string
	Endpoint string

	// MaxAttempts and MaxBackoff bound the SDK's own retries of throttled
	// requests. MaxRetryWait caps the total time one write may spend
	// retrying. Concurrency caps in-flight writes; zero means unbounded.
	MaxAttempts  int
	MaxBackoff   time.Duration
	MaxRetryWait time.Duration
	Concurrency  int

	// TableWait bounds how long table create/update waits for ACTIVE.
	TableWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.MaxRetryWait <= 0 {
		o.MaxRetryWait = DefaultMaxRetryWait
	}
	if o.TableWait <= 0 {
		o.TableWait = DefaultTableWait
	}
	return o
}

type Client struct {
	api    API
	opts   Options
	logger *zap.Logger
}

// NewClient loads the shared AWS configuration and builds a client whose
// retry policy is fixed for its whole lifetime.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	opts = opts.withDefaults()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = opts.MaxAttempts
				o.MaxBackoff = opts.MaxBackoff
				o.RateLimiter = ratelimit.None
			})
		}),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	svc := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return New(svc, opts, logger), nil
}

// New wraps an existing API implementation.
func New(api API, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, opts: opts.withDefaults(), logger: logger}
}
