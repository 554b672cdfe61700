package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for per-variant stock snapshots. The
// client-held copy is never authoritative: every successful mutation
// invalidates the variant's key, and readers fall back to Postgres on miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func stockKey(variantID uuid.UUID) string {
	return fmt.Sprintf("inventory:stock:%s", variantID)
}

// FetchStock loads the cached record or populates it using the loader.
func (c *Cache) FetchStock(ctx context.Context, variantID uuid.UUID, loader func(context.Context) (StockRecord, error)) (StockRecord, error) {
	if loader == nil {
		return StockRecord{}, errors.New("inventory: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := stockKey(variantID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rec StockRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return rec, nil
		}
		// Corrupt entry: drop it and reload.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}
	rec, err := loader(ctx)
	if err != nil {
		return StockRecord{}, err
	}
	if encoded, err := json.Marshal(rec); err == nil {
		_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
	}
	return rec, nil
}

// Invalidate drops the variant's cached snapshot.
func (c *Cache) Invalidate(ctx context.Context, variantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, stockKey(variantID)).Err()
}
