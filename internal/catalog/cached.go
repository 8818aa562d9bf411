package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/common/metrics"
	"startup-match-workers/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

const snapshotKey = "catalog:active:v1"

type snapshot struct {
	startups  []models.Startup
	expiresAt time.Time
}

// CachedSupplier is a read-through cache over a Supplier: an in-process LRU
// in front of a Redis snapshot shared by all worker replicas.
type CachedSupplier struct {
	source     Supplier
	sourceName string
	redis      *redis.Client
	local      *lru.Cache[string, snapshot]
	ttl        time.Duration
	logger     logger.Logger
	now        func() time.Time
}

func NewCachedSupplier(source Supplier, sourceName string, rdb *redis.Client, lruSize int, ttl time.Duration, log logger.Logger) (*CachedSupplier, error) {
	local, err := lru.New[string, snapshot](lruSize)
	if err != nil {
		return nil, err
	}
	return &CachedSupplier{
		source:     source,
		sourceName: sourceName,
		redis:      rdb,
		local:      local,
		ttl:        ttl,
		logger:     log.WithFields(map[string]interface{}{"component": "catalog"}),
		now:        time.Now,
	}, nil
}

// ListActiveProviders returns the cached snapshot or reloads it from the source.
// Redis failures degrade to a source read; source failures are CATALOG_LOAD_FAILED.
func (c *CachedSupplier) ListActiveProviders(ctx context.Context) ([]models.Startup, error) {
	if snap, ok := c.local.Get(snapshotKey); ok && c.now().Before(snap.expiresAt) {
		metrics.CatalogCacheLookups.WithLabelValues("lru").Inc()
		return snap.startups, nil
	}

	if c.redis != nil {
		startups, err := c.readRedis(ctx)
		switch {
		case err == nil:
			metrics.CatalogCacheLookups.WithLabelValues("redis").Inc()
			c.local.Add(snapshotKey, snapshot{startups: startups, expiresAt: c.now().Add(c.ttl)})
			return startups, nil
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("catalog cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	metrics.CatalogCacheLookups.WithLabelValues("source").Inc()
	startups, err := c.source.ListActiveProviders(ctx)
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(c.sourceName, err)
	}
	startups = FilterActive(startups)

	// An empty catalog is not cached so newly activated startups show up immediately.
	if len(startups) > 0 {
		c.store(ctx, startups)
	}

	c.logger.Debug("catalog loaded from source", map[string]interface{}{
		"source": c.sourceName,
		"count":  len(startups),
	})
	return startups, nil
}

// Invalidate drops both cache tiers. Catalog writers call it after changes.
func (c *CachedSupplier) Invalidate(ctx context.Context) error {
	c.local.Remove(snapshotKey)
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, snapshotKey).Err()
}

func (c *CachedSupplier) readRedis(ctx context.Context) ([]models.Startup, error) {
	val, err := c.redis.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, err
	}
	var startups []models.Startup
	if err := json.Unmarshal(val, &startups); err != nil {
		return nil, err
	}
	return startups, nil
}

func (c *CachedSupplier) store(ctx context.Context, startups []models.Startup) {
	c.local.Add(snapshotKey, snapshot{startups: startups, expiresAt: c.now().Add(c.ttl)})

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(startups)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
