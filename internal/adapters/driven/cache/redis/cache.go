// Package redis caches query embeddings in Redis so repeated category
// queries skip the embedding backend.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.QueryEmbeddingCache = (*Cache)(nil)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 24 * time.Hour

const (
	keyPrefix   = "plataformas:qemb:"
	dialTimeout = 10 * time.Second
)

// Cache stores float32 vectors under (model, sha256(query)).
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// New connects to Redis and checks the connection. The address may be a
// redis:// or rediss:// URL or a plain host:port.
func New(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	var opts *goredis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: addr}
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached vector, if present.
func (c *Cache) Get(ctx context.Context, model, query string) ([]float32, bool, error) {
	b, err := c.client.Get(ctx, Key(model, query)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading query embedding: %w", err)
	}

	vec, err := vectors.Decode(b)
	if err != nil {
		return nil, false, fmt.Errorf("decoding query embedding: %w", err)
	}
	return vec, true, nil
}

// Set stores the vector with the cache TTL.
func (c *Cache) Set(ctx context.Context, model, query string, vector []float32) error {
	if err := c.client.Set(ctx, Key(model, query), vectors.Encode(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("writing query embedding: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key returns the Redis key for a query under a model.
func Key(model, query string) string {
	sum := sha256.Sum256([]byte(query))
	return keyPrefix + model + ":" + hex.EncodeToString(sum[:])
}
