package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/criticaltracks/internal/core/ports"
)

// Cache keeps serialized run reports in Valkey, keyed by range and filter.
// It implements ports.CacheService.
type Cache struct {
	client valkey.Client
}

// New connects to the Valkey server at addr.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get returns the cached report bytes. An absent or expired key yields
// ports.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ports.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Set stores report bytes that expire after ttlSeconds. Reports never live
// in the cache without an expiry, so a non-positive TTL is rejected.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		return fmt.Errorf("valkey set %s: ttl must be positive, got %d", key, ttlSeconds)
	}
	cmd := c.client.Do(ctx,
		c.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Ex(time.Duration(ttlSeconds)*time.Second).Build(),
	)
	return cmd.Error()
}

// Delete evicts one cached report.
func (c *Cache) Delete(ctx context.Context, key string) error {
	cmd := c.client.Do(ctx, c.client.B().Del().Key(key).Build())
	return cmd.Error()
}

// Ping is used by the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
