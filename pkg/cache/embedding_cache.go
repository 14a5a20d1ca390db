// Package cache provides a bounded in-memory embedding cache for callers of the
// embedding service. Concurrent misses for the same key share one load.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidSize is returned when the cache is created with a non-positive size.
var ErrInvalidSize = errors.New("cache size must be positive")

// LoadFunc produces the embedding for text on a cache miss.
type LoadFunc func(ctx context.Context, text string) ([]float64, error)

// EmbeddingCache maps (namespace, text) to an embedding vector. The namespace separates
// vectors that must never be mixed, such as different models or proxy base URLs.
// Returned slices are copies; callers may modify them freely.
type EmbeddingCache struct {
	lru   *lru.Cache[string, []float64]
	group singleflight.Group
}

// New creates an EmbeddingCache holding at most size vectors.
func New(size int) (*EmbeddingCache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	l, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}

	return &EmbeddingCache{lru: l}, nil
}

// Key derives the cache key for text within namespace.
func Key(namespace, text string) string {
	sum := sha256.Sum256([]byte(namespace + "\x00" + text))

	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for (namespace, text), calling load on a miss.
// hit reports whether the value came from the cache. Failed loads are not cached.
//
// Concurrent misses share one load. That load runs with the first caller's context values
// but without its cancellation, so a caller that gives up gets ctx.Err() while the other
// waiters still receive the result. load must bound its own duration (e.g. an HTTP timeout).
func (c *EmbeddingCache) Get(ctx context.Context, namespace, text string, load LoadFunc) (vec []float64, hit bool, err error) {
	key := Key(namespace, text)
	if v, ok := c.lru.Get(key); ok {
		return slices.Clone(v), true, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (any, error) {
		loaded, loadErr := load(loadCtx, text)
		if loadErr != nil {
			return nil, loadErr
		}

		c.lru.Add(key, loaded)

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}

		return slices.Clone(res.Val.([]float64)), false, nil
	}
}

// Peek returns the cached vector without loading or touching recency.
func (c *EmbeddingCache) Peek(namespace, text string) ([]float64, bool) {
	v, ok := c.lru.Peek(Key(namespace, text))
	if !ok {
		return nil, false
	}

	return slices.Clone(v), true
}

// Put stores vec for (namespace, text).
func (c *EmbeddingCache) Put(namespace, text string, vec []float64) {
	c.lru.Add(Key(namespace, text), slices.Clone(vec))
}

// Purge removes all entries.
func (c *EmbeddingCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}
