// Package streams holds the consumers fed by the table's change stream: the
// activity aggregator and the notification dispatcher. Both run off the same
// stream, tolerate replays, and never fail a whole batch for one bad record.
package streams

import (
	"fmt"

	"letters-backend/infrastructure/persistence/schema"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StreamRecord is one decoded change-stream record: the entity kind recovered
// from the raw key pair plus the row images converted into SDK attribute
// values, ready for attributevalue unmarshalling.
type StreamRecord struct {
	EventName string
	Kind      schema.EntityKind
	Parsed    schema.ParsedKey
	NewImage  map[string]types.AttributeValue
	OldImage  map[string]types.AttributeValue
}

// DecodeRecord normalizes a raw Lambda stream record. An unrecognized key
// shape is an error; callers count it and move on rather than failing the
// batch.
func DecodeRecord(record events.DynamoDBEventRecord) (*StreamRecord, error) {
	pk, err := keyString(record.Change.Keys, "PK")
	if err != nil {
		return nil, fmt.Errorf("decode stream record: %w", err)
	}
	sk, err := keyString(record.Change.Keys, "SK")
	if err != nil {
		return nil, fmt.Errorf("decode stream record: %w", err)
	}

	parsed, err := schema.ParseKey(schema.Key{PK: pk, SK: sk})
	if err != nil {
		return nil, fmt.Errorf("decode stream record: %w", err)
	}

	newImage, err := convertImage(record.Change.NewImage)
	if err != nil {
		return nil, fmt.Errorf("decode new image: %w", err)
	}
	oldImage, err := convertImage(record.Change.OldImage)
	if err != nil {
		return nil, fmt.Errorf("decode old image: %w", err)
	}

	return &StreamRecord{
		EventName: record.EventName,
		Kind:      parsed.Kind,
		Parsed:    parsed,
		NewImage:  newImage,
		OldImage:  oldImage,
	}, nil
}

// keyString extracts a string key attribute. The zero DynamoDBAttributeValue
// panics on String(), so presence and type are checked first.
func keyString(keys map[string]events.DynamoDBAttributeValue, name string) (string, error) {
	attr, ok := keys[name]
	if !ok {
		return "", fmt.Errorf("key attribute %s missing", name)
	}
	if attr.DataType() != events.DataTypeString {
		return "", fmt.Errorf("key attribute %s is not a string", name)
	}
	return attr.String(), nil
}

// UnmarshalNew decodes the record's new image into an entity struct.
func (r *StreamRecord) UnmarshalNew(out interface{}) error {
	return attributevalue.UnmarshalMap(r.NewImage, out)
}

// convertImage maps the Lambda event representation of an item image onto the
// SDK attribute values the rest of the codebase speaks.
func convertImage(image map[string]events.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	if image == nil {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(image))
	for name, attr := range image {
		converted, err := convertAttribute(attr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = converted
	}
	return out, nil
}

func convertAttribute(attr events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch attr.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: attr.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: attr.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: attr.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: attr.IsNull()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: attr.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: attr.NumberSet()}, nil
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(attr.List()))
		for _, element := range attr.List() {
			converted, err := convertAttribute(element)
			if err != nil {
				return nil, err
			}
			list = append(list, converted)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case events.DataTypeMap:
		m := make(map[string]types.AttributeValue, len(attr.Map()))
		for name, element := range attr.Map() {
			converted, err := convertAttribute(element)
			if err != nil {
				return nil, err
			}
			m[name] = converted
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %v", attr.DataType())
}
