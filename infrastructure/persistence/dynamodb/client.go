// Package dynamodb implements the repositories over the single letters table.
// Every cross-request race is resolved with conditional or atomic writes on
// one key; no repository ever does a read-then-write on shared counters.
package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"letters-backend/infrastructure/persistence/schema"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the slice of the DynamoDB client the repositories use.
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// GSI1Name is the name of the fan-out index.
const GSI1Name = "GSI1"

// keyAttrs converts a schema key into the attribute map DynamoDB expects.
func keyAttrs(k schema.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: k.PK},
		"SK": &types.AttributeValueMemberS{Value: k.SK},
	}
}

// marshalItem marshals an entity and stamps the primary key onto it.
func marshalItem(entity interface{}, k schema.Key) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, err
	}
	item["PK"] = &types.AttributeValueMemberS{Value: k.PK}
	item["SK"] = &types.AttributeValueMemberS{Value: k.SK}
	return item, nil
}

// marshalIndexedItem additionally stamps the GSI1 key pair.
func marshalIndexedItem(entity interface{}, k schema.Key, idx schema.GSI1) (map[string]types.AttributeValue, error) {
	item, err := marshalItem(entity, k)
	if err != nil {
		return nil, err
	}
	item["GSI1PK"] = &types.AttributeValueMemberS{Value: idx.GSI1PK}
	item["GSI1SK"] = &types.AttributeValueMemberS{Value: idx.GSI1SK}
	return item, nil
}

// encodeCursor turns DynamoDB's LastEvaluatedKey into an opaque page token.
func encodeCursor(lastKey map[string]types.AttributeValue) string {
	if lastKey == nil {
		return ""
	}
	plain := make(map[string]string, len(lastKey))
	for name, attr := range lastKey {
		if s, ok := attr.(*types.AttributeValueMemberS); ok {
			plain[name] = s.Value
		}
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor reverses encodeCursor. An empty token means the first page.
func decodeCursor(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed page token: %w", err)
	}
	var plain map[string]string
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("malformed page token: %w", err)
	}
	key := make(map[string]types.AttributeValue, len(plain))
	for name, value := range plain {
		key[name] = &types.AttributeValueMemberS{Value: value}
	}
	return key, nil
}
