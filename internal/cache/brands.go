// Package cache keeps the brand list for the lifetime of the process.
package cache

import (
	"Tuner/internal/models"
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BrandLoader fetches the full brand list.
type BrandLoader interface {
	Brands(ctx context.Context) ([]models.Brand, error)
}

// BrandCache loads the brand list at most once successfully. Concurrent
// callers of Get share a single in-flight load; failures are not cached.
type BrandCache struct {
	loader BrandLoader
	group  singleflight.Group

	mu     sync.RWMutex
	brands []models.Brand
	loaded bool
}

func NewBrandCache(loader BrandLoader) *BrandCache {
	return &BrandCache{loader: loader}
}

// Peek returns the cached brands, if any, without loading.
func (c *BrandCache) Peek() ([]models.Brand, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	return slices.Clone(c.brands), true
}

// Get returns the cached brands or loads them.
func (c *BrandCache) Get(ctx context.Context) ([]models.Brand, error) {
	if brands, ok := c.Peek(); ok {
		return brands, nil
	}

	// The shared load must outlive any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("brands", func() (any, error) {
		if brands, ok := c.Peek(); ok {
			return brands, nil
		}
		brands, err := c.loader.Brands(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.brands = brands
		c.loaded = true
		c.mu.Unlock()
		return brands, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]models.Brand)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
