package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-signup-presence/internal/domain"
)

// cacheItem is one TTL'd entry. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type cacheItem struct {
	Key       string `dynamodbav:"cache_key"`
	Value     []byte `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// Cache is a key-value store with per-entry expiry on a DynamoDB table.
// PK: cache_key. DynamoDB deletes expired items lazily, so reads also compare expires_at.
type Cache struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewCache(client *dynamodb.Client, tableName string) *Cache {
	return &Cache{client: client, tableName: tableName, now: time.Now}
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item, err := attributevalue.MarshalMap(cacheItem{
		Key:       key,
		Value:     value,
		ExpiresAt: c.now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal cache item: %w", err)
	}
	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	return err
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            strKey(fieldCacheKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	var it cacheItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	if expired(it.ExpiresAt, c.now()) {
		return nil, fmt.Errorf("cache key %s expired: %w", key, domain.ErrNotFound)
	}
	return it.Value, nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(c.tableName),
			Key:       strKey(fieldCacheKey, k),
		}); err != nil {
			return fmt.Errorf("delete cache key %s: %w", k, err)
		}
	}
	return nil
}

// expired reports whether a TTL timestamp is at or before now.
func expired(expiresAt int64, now time.Time) bool {
	return expiresAt <= now.Unix()
}
