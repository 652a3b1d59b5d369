package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// TransferCache implements ports.TransferCache using Redis.
type TransferCache struct {
	client *goredis.Client
	prefix string
}

// NewTransferCache creates a new Redis-backed transfer attempt cache.
func NewTransferCache(client *goredis.Client) *TransferCache {
	return &TransferCache{
		client: client,
		prefix: "transfer:",
	}
}

var _ ports.TransferCache = (*TransferCache)(nil)

// cachedAttempt keeps the encrypted continuation token, which the domain
// type hides from JSON.
type cachedAttempt struct {
	domain.TransferAttempt
	ContinueTokenEnc string `json:"continueTokenEnc"`
}

// Get returns the cached attempt, or nil, nil on a miss.
func (c *TransferCache) Get(ctx context.Context, id uuid.UUID) (*domain.TransferAttempt, error) {
	val, err := c.client.Get(ctx, c.prefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis transfer get: %w", err)
	}

	var cached cachedAttempt
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, fmt.Errorf("redis transfer decode: %w", err)
	}
	attempt := cached.TransferAttempt
	attempt.ContinueTokenEnc = cached.ContinueTokenEnc
	return &attempt, nil
}

// Set stores the attempt with TTL.
func (c *TransferCache) Set(ctx context.Context, attempt *domain.TransferAttempt, ttl time.Duration) error {
	val, err := json.Marshal(cachedAttempt{TransferAttempt: *attempt, ContinueTokenEnc: attempt.ContinueTokenEnc})
	if err != nil {
		return fmt.Errorf("redis transfer encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+attempt.ID.String(), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis transfer set: %w", err)
	}
	return nil
}

// Delete evicts an attempt.
func (c *TransferCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+id.String()).Err(); err != nil {
		return fmt.Errorf("redis transfer delete: %w", err)
	}
	return nil
}
