package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"portfolio-api/internal/domain"
)

const (
	pkPrefixQuota  = "QUOTA#"
	skPrefixWindow = "WINDOW#"
	ttlDuration    = 48 * time.Hour // windows are daily; keep one spare day
)

// ErrQuotaExceeded is returned by Consume when the window is already full.
var ErrQuotaExceeded = errors.New("repository: quota exceeded")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Client wraps a DynamoDB table holding per-client request counters.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// quotaPK returns the partition key for a route scope and client. The client
// identifier is hashed so raw addresses never reach the table.
func quotaPK(scope, clientID string) string {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		clientID = "anonymous"
	}
	sum := sha256.Sum256([]byte(clientID))
	return pkPrefixQuota + scope + "#" + hex.EncodeToString(sum[:16])
}

// windowSK returns the sort key of the daily window containing ts.
func windowSK(ts time.Time) string {
	return skPrefixWindow + ts.UTC().Format("2006-01-02")
}

// Consume atomically records one hit in the current window. It returns
// ErrQuotaExceeded, without counting, when the window already holds limit
// hits.
func (c *Client) Consume(ctx context.Context, scope, clientID string, limit int) (domain.QuotaWindow, error) {
	if limit <= 0 {
		return domain.QuotaWindow{}, errors.New("repository: Consume: limit must be positive")
	}
	now := c.now()

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: quotaPK(scope, clientID)},
			"SK": &types.AttributeValueMemberS{Value: windowSK(now)},
		},
		UpdateExpression:    aws.String("SET #ttl = if_not_exists(#ttl, :ttl) ADD hits :one"),
		ConditionExpression: aws.String("attribute_not_exists(hits) OR hits < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: strconv.Itoa(limit)},
			":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(ttlDuration).Unix(), 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.QuotaWindow{}, ErrQuotaExceeded
		}
		return domain.QuotaWindow{}, fmt.Errorf("repository: Consume update item: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return domain.QuotaWindow{}, errors.New("repository: Consume: missing updated attributes")
	}

	w, err := itemToWindow(out.Attributes)
	if err != nil {
		return domain.QuotaWindow{}, fmt.Errorf("repository: Consume decode: %w", err)
	}
	return w, nil
}

// itemToWindow converts a DynamoDB attribute map to a QuotaWindow.
func itemToWindow(item map[string]types.AttributeValue) (domain.QuotaWindow, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.QuotaWindow{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.QuotaWindow{}, err
	}
	hits, err := intAttr(item, "hits")
	if err != nil {
		return domain.QuotaWindow{}, err
	}
	ttl, _ := intAttr(item, "ttl") // allow missing

	return domain.QuotaWindow{PK: pk, SK: sk, Hits: hits, TTL: int64(ttl)}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
