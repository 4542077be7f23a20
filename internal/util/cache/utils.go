package cache_utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	DefaultCacheTimeout = 5 * time.Second
	DefaultCacheExpiry  = 10 * time.Minute
)

// CacheUtil stores JSON-encoded values of one type under a key prefix.
type CacheUtil[T any] struct {
	client  valkey.Client
	prefix  string
	timeout time.Duration
	expiry  time.Duration
}

func NewCacheUtil[T any](client valkey.Client, prefix string) *CacheUtil[T] {
	return &CacheUtil[T]{
		client:  client,
		prefix:  prefix,
		timeout: DefaultCacheTimeout,
		expiry:  DefaultCacheExpiry,
	}
}

// Ping checks that the server answers.
func Ping(ctx context.Context, client valkey.Client) error {
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey ping failed: %w", err)
	}
	return nil
}

// TestCacheConnection writes, reads back and removes a probe key.
func TestCacheConnection(client valkey.Client) error {
	cacheUtil := NewCacheUtil[string](client, "logrelay:probe:")

	key := "connection_test"
	value := "valkey_is_working"

	if err := cacheUtil.Set(key, &value); err != nil {
		return err
	}

	retrieved, err := cacheUtil.Get(key)
	if err != nil {
		return err
	}
	if retrieved == nil || *retrieved != value {
		return errors.New("cache probe returned a different value than written")
	}

	return cacheUtil.Invalidate(key)
}

// Get returns nil without error when the key does not exist.
func (c *CacheUtil[T]) Get(key string) (*T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	data, err := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return &item, nil
}

func (c *CacheUtil[T]) Set(key string, item *T) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	command := c.client.B().Set().Key(c.prefix + key).Value(string(data)).Ex(c.expiry).Build()
	if err := c.client.Do(ctx, command).Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (c *CacheUtil[T]) Invalidate(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
