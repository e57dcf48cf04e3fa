// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package querycache memoizes primary provider pages. Identical concurrent
// lookups collapse into one provider call, and completed pages are kept in
// a Store for the configured TTL.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/ops"
)

const keyPrefix = "patent-chooser:ops:"

// Fetcher is the primary provider contract.
type Fetcher interface {
	Fetch(ctx context.Context, query string, start, end int) (ops.Page, error)
}

// Cached wraps a Fetcher with a Store. Errors, including ops.ErrNotFound,
// are never cached.
type Cached struct {
	next    Fetcher
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a caching Fetcher. A zero ttl defaults to ten minutes.
func New(next Fetcher, store Store, ttl time.Duration, m *metrics.Metrics) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Fetch returns the cached page or fetches it once from the provider.
func (c *Cached) Fetch(ctx context.Context, query string, start, end int) (ops.Page, error) {
	key := buildKey(query, start, end)
	if page, ok := c.lookup(ctx, key); ok {
		c.metrics.ObserveCache(true)
		return page, nil
	}
	c.metrics.ObserveCache(false)

	val, err, _ := c.group.Do(key, func() (any, error) {
		if page, ok := c.lookup(ctx, key); ok {
			return page, nil
		}
		page, err := c.next.Fetch(ctx, query, start, end)
		if err != nil {
			return ops.Page{}, err
		}
		c.save(ctx, key, page)
		return page, nil
	})
	if err != nil {
		return ops.Page{}, err
	}
	return val.(ops.Page), nil
}

// Invalidate drops every cached page.
func (c *Cached) Invalidate(ctx context.Context) error {
	deleted, err := c.store.Flush(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *Cached) lookup(ctx context.Context, key string) (ops.Page, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return ops.Page{}, false
	}
	if !ok {
		return ops.Page{}, false
	}
	var page ops.Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return ops.Page{}, false
	}
	c.logger.Debug("cache hit", "key", key)
	return page, true
}

func (c *Cached) save(ctx context.Context, key string, page ops.Page) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// buildKey hashes the whitespace-normalized query and the range. Operand
// order is kept: it is the requested display order.
func buildKey(query string, start, end int) string {
	normalized := strings.Join(strings.Fields(query), " ")
	raw := fmt.Sprintf("%s|range=%d-%d", normalized, start, end)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
