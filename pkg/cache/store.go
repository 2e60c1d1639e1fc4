package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	cache "github.com/eko/gocache/v3/cache"
	store "github.com/eko/gocache/v3/store"
)

var ErrNotFound = errors.New("key not found")

// Store is a string-keyed cache with per-item expiration.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type InMemoryStore[T any] struct {
	ristretto *ristretto.Cache
	cache     *cache.Cache[T]
}

func (c *InMemoryStore[T]) Set(ctx context.Context, key string, value T, expiration time.Duration) error {
	if err := c.cache.Set(ctx, key, value, store.WithCost(1), store.WithExpiration(expiration)); err != nil {
		return err
	}
	// ristretto applies writes asynchronously
	c.ristretto.Wait()
	return nil
}

func (c *InMemoryStore[T]) Get(ctx context.Context, key string) (T, error) {
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		var resultObject T
		if strings.Contains(err.Error(), "value not found") {
			return resultObject, ErrNotFound
		}
		return resultObject, err
	}
	return value, nil
}

func (c *InMemoryStore[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

func NewInMemoryStore[T any](maxItems int64) (*InMemoryStore[T], error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	ristrettoStore := store.NewRistretto(ristrettoCache)
	return &InMemoryStore[T]{
		ristretto: ristrettoCache,
		cache:     cache.New[T](ristrettoStore),
	}, nil
}
