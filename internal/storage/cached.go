package storage

import (
	"context"
	"errors"

	"bucks2bar/internal/cache"
)

// CachedKV is a read-through cache in front of a slower KV. Writes go to
// the backing store first and only then refresh the cache.
type CachedKV struct {
	next  KV
	cache cache.Cache[[]byte]
}

func NewCachedKV(next KV, c cache.Cache[[]byte]) *CachedKV {
	return &CachedKV{next: next, cache: c}
}

func (c *CachedKV) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		return append([]byte(nil), v...), nil
	}
	v, err := c.next.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.cache.Delete(key)
		}
		return nil, err
	}
	c.cache.Set(key, append([]byte(nil), v...))
	return v, nil
}

func (c *CachedKV) Set(ctx context.Context, key string, value []byte) error {
	if err := c.next.Set(ctx, key, value); err != nil {
		c.cache.Delete(key)
		return err
	}
	c.cache.Set(key, append([]byte(nil), value...))
	return nil
}

func (c *CachedKV) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return c.next.Delete(ctx, key)
}

func (c *CachedKV) Close() error {
	return c.next.Close()
}
