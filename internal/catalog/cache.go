package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/common/metrics"
	"toppick-workers/internal/models"
)

const cacheKeyPrefix = "catalog:recent:"

// CachedStore puts a redis cache-aside layer in front of Recent. Writes go
// straight to the wrapped store and then drop the cached lists they affect.
// Redis failures are logged and never fail the call.
type CachedStore struct {
	next   Store
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-cache"}),
	}
}

// CacheKey is the redis key for one candidate list.
func CacheKey(brand string, limit int) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, brandSegment(brand), NormalizeLimit(limit))
}

func brandSegment(brand string) string {
	if brand == "" {
		return "all"
	}
	return "brand=" + brand
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// globEscape quotes the characters SCAN MATCH treats as wildcards.
func globEscape(s string) string {
	return globEscaper.Replace(s)
}

func (c *CachedStore) Recent(ctx context.Context, q models.CandidateQuery) ([]models.Product, error) {
	key := CacheKey(q.Brand, q.Limit)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var products []models.Product
		if err := json.Unmarshal([]byte(val), &products); err == nil {
			metrics.CatalogCacheRequests.WithLabelValues("hit").Inc()
			return products, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
	case err != redis.Nil:
		metrics.CatalogCacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	metrics.CatalogCacheRequests.WithLabelValues("miss").Inc()

	products, err := c.next.Recent(ctx, q)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(products)
	if err != nil {
		return products, nil
	}
	if err := c.redis.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return products, nil
}

func (c *CachedStore) Get(ctx context.Context, id string) (*models.Product, error) {
	return c.next.Get(ctx, id)
}

func (c *CachedStore) Insert(ctx context.Context, p *models.Product) error {
	if err := c.next.Insert(ctx, p); err != nil {
		return err
	}
	c.Invalidate(ctx, p.Brand)
	return nil
}

// Update also invalidates the previous brand when the product moved.
func (c *CachedStore) Update(ctx context.Context, p *models.Product) error {
	previous, _ := c.next.Get(ctx, p.ID)

	if err := c.next.Update(ctx, p); err != nil {
		return err
	}
	if previous != nil && previous.Brand != p.Brand {
		c.Invalidate(ctx, previous.Brand)
	}
	c.Invalidate(ctx, p.Brand)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	previous, _ := c.next.Get(ctx, id)

	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	brand := ""
	if previous != nil {
		brand = previous.Brand
	}
	c.Invalidate(ctx, brand)
	return nil
}

// Invalidate drops every cached list for brand and for the unfiltered
// catalog, whatever limit they were cached with.
func (c *CachedStore) Invalidate(ctx context.Context, brand string) {
	patterns := []string{cacheKeyPrefix + brandSegment("") + ":*"}
	if brand != "" {
		patterns = append(patterns, cacheKeyPrefix+brandSegment(globEscape(brand))+":*")
	}

	for _, pattern := range patterns {
		var cursor uint64
		for {
			keys, next, err := c.redis.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				c.logger.Warn("cache invalidation scan failed", map[string]interface{}{
					"pattern": pattern,
					"error":   err.Error(),
				})
				break
			}
			if len(keys) > 0 {
				if err := c.redis.Del(ctx, keys...).Err(); err != nil {
					c.logger.Warn("cache invalidation failed", map[string]interface{}{
						"pattern": pattern,
						"error":   err.Error(),
					})
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
}
