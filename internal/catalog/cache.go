package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through redis cache over a Source. Reference data changes
// rarely, so a short TTL keeps admin imports visible without invalidation
// plumbing. A nil client makes every call a passthrough, and redis errors
// fall back to the wrapped source so the cache never adds a failure mode.
type Cache struct {
	src Source
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(src Source, rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{src: src, rdb: rdb, ttl: ttl}
}

func (c *Cache) ListCategories(ctx context.Context, lang string) ([]Category, error) {
	key := fmt.Sprintf("catalog:categories:%s", lang)
	var cached []Category
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	items, err := c.src.ListCategories(ctx, lang)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, items)
	return items, nil
}

func (c *Cache) ListQuestions(ctx context.Context, categoryID, lang string) ([]Question, error) {
	key := fmt.Sprintf("catalog:questions:%s:%s", categoryID, lang)
	var cached []Question
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	items, err := c.src.ListQuestions(ctx, categoryID, lang)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, items)
	return items, nil
}

// Invalidate drops every cached catalog entry, used after an admin import.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, "catalog:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("catalog cache: delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("catalog cache: scan: %w", err)
	}
	return nil
}

func (c *Cache) lookup(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("catalog cache: get %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		log.Printf("catalog cache: decode %s: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("catalog cache: set %s: %v", key, err)
	}
}
