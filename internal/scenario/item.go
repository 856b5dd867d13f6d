package scenario

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a record ready to be written: its partition key plus the
// attribute-value document holding the whole record.
type Item struct {
	PartitionKey int
	ID           string
	Payload      map[string]types.AttributeValue
}

func ToItems(entries []Entry) ([]Item, error) {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		base := e.Base()
		payload, err := attributevalue.MarshalMap(e)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record %s: %w", base.ID, err)
		}
		items = append(items, Item{
			PartitionKey: base.PartitionKey(),
			ID:           base.ID,
			Payload:      payload,
		})
	}
	return items, nil
}

// FromItem decodes a stored payload back into a record of the schema.
func FromItem(payload map[string]types.AttributeValue, schema Schema) (Entry, error) {
	var e Entry
	switch schema {
	case PowerFlowSchema:
		e = &PowerFlow{}
	case PowerGenerationSchema:
		e = &PowerGeneration{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, string(schema))
	}
	if err := attributevalue.UnmarshalMap(payload, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return e, nil
}
