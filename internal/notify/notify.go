package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier publishes upload summaries to an SNS topic. A Notifier without
// a topic does nothing.
type Notifier struct {
	api    SNSAPI
	topic  string
	logger *zap.Logger
}

func New(api SNSAPI, topic string, logger *zap.Logger) *Notifier {
	return &Notifier{api: api, topic: topic, logger: logger}
}

// Publish sends v as a JSON message. Errors are logged and returned but
// callers treat them as non-fatal.
func (n *Notifier) Publish(ctx context.Context, subject string, v any) error {
	if n == nil || n.api == nil || n.topic == "" {
		return nil
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	out, err := n.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topic),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		n.logger.Warn("failed to publish notification", zap.String("topic", n.topic), zap.Error(err))
		return fmt.Errorf("failed to publish to %s: %w", n.topic, err)
	}
	n.logger.Info("notification published", zap.String("topic", n.topic), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
