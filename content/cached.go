package content

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Titouaaaan/tutormesh/core"
)

// CacheOptions configures a CachedStore.
type CacheOptions struct {
	// MaxCostBytes bounds the total size of cached documents.
	MaxCostBytes int64
	// TTL expires cached documents. Zero keeps them until evicted.
	TTL time.Duration
}

// CachedStore puts a ristretto cache in front of another ContentStore.
// Writes go through to the backing store and invalidate the cached entry.
type CachedStore struct {
	backing core.ContentStore
	cache   *ristretto.Cache[string, []byte]
	ttl     time.Duration
}

// NewCachedStore wraps backing with an in-process cache.
func NewCachedStore(backing core.ContentStore, optFns ...func(o *CacheOptions)) (*CachedStore, error) {
	opts := CacheOptions{MaxCostBytes: 32 << 20, TTL: 10 * time.Minute}
	for _, fn := range optFns {
		fn(&opts)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(opts.MaxCostBytes/100*10, 1000),
		MaxCost:     opts.MaxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{backing: backing, cache: c, ttl: opts.TTL}, nil
}

// Get serves from the cache, falling back to the backing store.
func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	data, err := s.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.SetWithTTL(key, data, int64(len(data)), s.ttl)
	return data, nil
}

// Put writes through and drops the cached copy.
func (s *CachedStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.backing.Put(ctx, key, data); err != nil {
		return err
	}
	s.cache.Del(key)
	return nil
}

// List delegates to the backing store.
func (s *CachedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.backing.List(ctx, prefix)
}

// Wait blocks until pending cache writes are applied.
func (s *CachedStore) Wait() { s.cache.Wait() }

// Close releases the cache.
func (s *CachedStore) Close() { s.cache.Close() }
