package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coshare/coshare-backend/internal/advisory"
	"github.com/redis/go-redis/v9"
)

// AdvisoryCache stores successful advisory answers so repeated identical
// requests do not hit the external service.
type AdvisoryCache interface {
	Get(ctx context.Context, capability advisory.Capability, groupID string, payload interface{}) (json.RawMessage, bool, error)
	Set(ctx context.Context, capability advisory.Capability, groupID string, payload interface{}, result json.RawMessage) error
}

// RedisAdvisoryCache implements AdvisoryCache on top of Redis string keys.
type RedisAdvisoryCache struct {
	redis     *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisAdvisoryCache returns nil when client is nil or ttl is not positive.
// A nil cache misses every lookup and ignores writes.
func NewRedisAdvisoryCache(client *redis.Client, ttl time.Duration) *RedisAdvisoryCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &RedisAdvisoryCache{
		redis:     client,
		keyPrefix: "advisory:",
		ttl:       ttl,
	}
}

func (c *RedisAdvisoryCache) key(capability advisory.Capability, groupID string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal advisory payload: %w", err)
	}
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s%s:%s:%s", c.keyPrefix, capability, groupID, hex.EncodeToString(sum[:8])), nil
}

func (c *RedisAdvisoryCache) Get(ctx context.Context, capability advisory.Capability, groupID string, payload interface{}) (json.RawMessage, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	key, err := c.key(capability, groupID, payload)
	if err != nil {
		return nil, false, err
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read advisory cache: %w", err)
	}
	return json.RawMessage(val), true, nil
}

func (c *RedisAdvisoryCache) Set(ctx context.Context, capability advisory.Capability, groupID string, payload interface{}, result json.RawMessage) error {
	if c == nil {
		return nil
	}
	key, err := c.key(capability, groupID, payload)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, key, string(result), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write advisory cache: %w", err)
	}
	return nil
}
