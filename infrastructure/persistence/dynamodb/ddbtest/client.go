// Package ddbtest provides an in-memory stand-in for the DynamoDB client. It
// evaluates the condition, update and key-condition expressions the
// repositories actually emit, including the aliased names and values produced
// by the expression builder, so conditional write semantics are exercised for
// real instead of being stubbed per test.
package ddbtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client is an in-memory DynamoDB table.
type Client struct {
	items map[string]map[string]types.AttributeValue

	// FailNext makes the next call return this error, for fail-path tests.
	FailNext error
}

// New creates an empty in-memory table.
func New() *Client {
	return &Client{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	return stringAttr(item, "PK") + "\x00" + stringAttr(item, "SK")
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (c *Client) takeErr() error {
	err := c.FailNext
	c.FailNext = nil
	return err
}

// GetItem implements the DynamoDB GetItem call.
func (c *Client) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := c.takeErr(); err != nil {
		return nil, err
	}
	item := c.items[itemKey(params.Key)]
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// PutItem implements the DynamoDB PutItem call, honoring any condition
// expression.
func (c *Client) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := c.takeErr(); err != nil {
		return nil, err
	}
	key := itemKey(params.Item)
	if params.ConditionExpression != nil {
		ok, err := evalCondition(*params.ConditionExpression, c.items[key], params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	c.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem implements the DynamoDB DeleteItem call.
func (c *Client) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if err := c.takeErr(); err != nil {
		return nil, err
	}
	key := itemKey(params.Key)
	if params.ConditionExpression != nil {
		ok, err := evalCondition(*params.ConditionExpression, c.items[key], params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	delete(c.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem implements the DynamoDB UpdateItem call, including upsert
// semantics when the addressed item does not exist.
func (c *Client) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := c.takeErr(); err != nil {
		return nil, err
	}
	key := itemKey(params.Key)
	existing := c.items[key]
	if params.ConditionExpression != nil {
		ok, err := evalCondition(*params.ConditionExpression, existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	updated := copyItem(existing)
	if updated == nil {
		updated = copyItem(params.Key)
	}
	if err := applyUpdate(updated, aws.ToString(params.UpdateExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	c.items[key] = updated

	out := &dynamodb.UpdateItemOutput{}
	if params.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(updated)
	}
	return out, nil
}

// Query implements the DynamoDB Query call over the table or the GSI1 index,
// with sorting, pagination and filter expressions.
func (c *Client) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if err := c.takeErr(); err != nil {
		return nil, err
	}
	skAttr := "SK"
	if params.IndexName != nil {
		skAttr = "GSI1SK"
	}

	var matched []map[string]types.AttributeValue
	for _, item := range c.items {
		ok, err := evalCondition(aws.ToString(params.KeyConditionExpression), item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		less := stringAttr(matched[i], skAttr) < stringAttr(matched[j], skAttr)
		if forward {
			return less
		}
		return !less
	})

	if params.ExclusiveStartKey != nil {
		start := stringAttr(params.ExclusiveStartKey, skAttr)
		var after []map[string]types.AttributeValue
		for _, item := range matched {
			sk := stringAttr(item, skAttr)
			if (forward && sk > start) || (!forward && sk < start) {
				after = append(after, item)
			}
		}
		matched = after
	}

	var lastKey map[string]types.AttributeValue
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
		last := matched[len(matched)-1]
		lastKey = map[string]types.AttributeValue{
			"PK": last["PK"],
			"SK": last["SK"],
		}
		if params.IndexName != nil {
			lastKey["GSI1PK"] = last["GSI1PK"]
			lastKey["GSI1SK"] = last["GSI1SK"]
		}
	}

	out := &dynamodb.QueryOutput{LastEvaluatedKey: lastKey}
	for _, item := range matched {
		if params.FilterExpression != nil {
			ok, err := evalCondition(*params.FilterExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out.Items = append(out.Items, copyItem(item))
	}
	return out, nil
}

// --- expression evaluation ---

func tokenize(expr string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch r {
		case '(', ')', ',':
			flush()
			toks = append(toks, string(r))
		case ' ', '\t', '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type condParser struct {
	toks   []string
	pos    int
	item   map[string]types.AttributeValue
	names  map[string]string
	values map[string]types.AttributeValue
}

func evalCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	p := &condParser{toks: tokenize(expr), item: item, names: names, values: values}
	ok, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("trailing tokens in expression %q", expr)
	}
	return ok, nil
}

func (p *condParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *condParser) next() (string, error) {
	if p.pos >= len(p.toks) {
		return "", fmt.Errorf("unexpected end of expression")
	}
	tok := p.toks[p.pos]
	p.pos++
	return tok, nil
}

func (p *condParser) expect(tok string) error {
	got, err := p.next()
	if err != nil {
		return err
	}
	if got != tok {
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *condParser) parseOr() (bool, error) {
	result, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.peek() == "OR" {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		result = result || right
	}
	return result, nil
}

func (p *condParser) parseAnd() (bool, error) {
	result, err := p.parsePrimary()
	if err != nil {
		return false, err
	}
	for p.peek() == "AND" {
		p.pos++
		right, err := p.parsePrimary()
		if err != nil {
			return false, err
		}
		result = result && right
	}
	return result, nil
}

func (p *condParser) parsePrimary() (bool, error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	switch tok {
	case "(":
		inner, err := p.parseOr()
		if err != nil {
			return false, err
		}
		return inner, p.expect(")")
	case "attribute_exists", "attribute_not_exists":
		if err := p.expect("("); err != nil {
			return false, err
		}
		name, err := p.next()
		if err != nil {
			return false, err
		}
		if err := p.expect(")"); err != nil {
			return false, err
		}
		_, exists := p.item[p.resolveName(name)]
		if tok == "attribute_exists" {
			return exists, nil
		}
		return !exists, nil
	case "begins_with":
		if err := p.expect("("); err != nil {
			return false, err
		}
		name, err := p.next()
		if err != nil {
			return false, err
		}
		if err := p.expect(","); err != nil {
			return false, err
		}
		operand, err := p.next()
		if err != nil {
			return false, err
		}
		if err := p.expect(")"); err != nil {
			return false, err
		}
		prefix, err := p.resolveValue(operand)
		if err != nil {
			return false, err
		}
		attr, ok := p.item[p.resolveName(name)].(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		prefixS, ok := prefix.(*types.AttributeValueMemberS)
		if !ok {
			return false, fmt.Errorf("begins_with needs a string operand")
		}
		return strings.HasPrefix(attr.Value, prefixS.Value), nil
	default:
		op, err := p.next()
		if err != nil {
			return false, err
		}
		operand, err := p.next()
		if err != nil {
			return false, err
		}
		value, err := p.resolveValue(operand)
		if err != nil {
			return false, err
		}
		return compareAttr(p.item[p.resolveName(tok)], op, value)
	}
}

func (p *condParser) resolveName(tok string) string {
	if strings.HasPrefix(tok, "#") {
		if real, ok := p.names[tok]; ok {
			return real
		}
	}
	return tok
}

func (p *condParser) resolveValue(tok string) (types.AttributeValue, error) {
	if !strings.HasPrefix(tok, ":") {
		return nil, fmt.Errorf("expected value placeholder, got %q", tok)
	}
	value, ok := p.values[tok]
	if !ok {
		return nil, fmt.Errorf("unbound value placeholder %q", tok)
	}
	return value, nil
}

func compareAttr(attr types.AttributeValue, op string, value types.AttributeValue) (bool, error) {
	if attr == nil {
		return false, nil
	}
	switch left := attr.(type) {
	case *types.AttributeValueMemberS:
		right, ok := value.(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		return compareOrdered(strings.Compare(left.Value, right.Value), op)
	case *types.AttributeValueMemberN:
		right, ok := value.(*types.AttributeValueMemberN)
		if !ok {
			return false, nil
		}
		l, err := strconv.ParseFloat(left.Value, 64)
		if err != nil {
			return false, err
		}
		r, err := strconv.ParseFloat(right.Value, 64)
		if err != nil {
			return false, err
		}
		switch {
		case l < r:
			return compareOrdered(-1, op)
		case l > r:
			return compareOrdered(1, op)
		default:
			return compareOrdered(0, op)
		}
	case *types.AttributeValueMemberBOOL:
		right, ok := value.(*types.AttributeValueMemberBOOL)
		if !ok {
			return false, nil
		}
		switch op {
		case "=":
			return left.Value == right.Value, nil
		case "<>":
			return left.Value != right.Value, nil
		}
		return false, fmt.Errorf("unsupported bool comparison %q", op)
	}
	return false, fmt.Errorf("unsupported attribute type in comparison")
}

func compareOrdered(cmp int, op string) (bool, error) {
	switch op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unsupported comparison operator %q", op)
}

func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	p := &condParser{names: names, values: values}
	toks := tokenize(expr)
	mode := ""
	for i := 0; i < len(toks); {
		switch toks[i] {
		case "SET", "ADD", "REMOVE":
			mode = toks[i]
			i++
		case ",":
			i++
		default:
			switch mode {
			case "SET":
				if i+2 >= len(toks) || toks[i+1] != "=" {
					return fmt.Errorf("malformed SET clause at %q", toks[i])
				}
				value, err := p.resolveValue(toks[i+2])
				if err != nil {
					return err
				}
				item[p.resolveName(toks[i])] = value
				i += 3
			case "ADD":
				if i+1 >= len(toks) {
					return fmt.Errorf("malformed ADD clause at %q", toks[i])
				}
				value, err := p.resolveValue(toks[i+1])
				if err != nil {
					return err
				}
				delta, ok := value.(*types.AttributeValueMemberN)
				if !ok {
					return fmt.Errorf("ADD needs a numeric operand")
				}
				name := p.resolveName(toks[i])
				current := 0.0
				if existing, ok := item[name].(*types.AttributeValueMemberN); ok {
					parsed, err := strconv.ParseFloat(existing.Value, 64)
					if err != nil {
						return err
					}
					current = parsed
				}
				d, err := strconv.ParseFloat(delta.Value, 64)
				if err != nil {
					return err
				}
				item[name] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(current+d, 'f', -1, 64)}
				i += 2
			case "REMOVE":
				delete(item, p.resolveName(toks[i]))
				i++
			default:
				return fmt.Errorf("update token %q outside any clause", toks[i])
			}
		}
	}
	return nil
}
