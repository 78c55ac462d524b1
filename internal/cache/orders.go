package cache

import (
	"context"
	"sync"
	"time"

	"gacha-summon/internal/shopify"
)

type OrderLoader func(context.Context, shopify.OrderNumber) (shopify.Order, error)

type entry struct {
	order   shopify.Order
	expires time.Time
}

// OrderCache keeps store orders for a while so repeated claims of the same
// number do not hit the store API. Failed lookups are not cached.
type OrderCache struct {
	mu       sync.RWMutex
	entries  map[shopify.OrderNumber]entry
	ttl      time.Duration
	loadFunc OrderLoader
	now      func() time.Time
}

func NewOrderCache(ttl time.Duration, loader OrderLoader) *OrderCache {
	return &OrderCache{
		entries:  make(map[shopify.OrderNumber]entry),
		ttl:      ttl,
		loadFunc: loader,
		now:      time.Now,
	}
}

func (c *OrderCache) Get(ctx context.Context, number shopify.OrderNumber) (shopify.Order, error) {
	c.mu.RLock()
	if e, ok := c.entries[number]; ok && c.now().Before(e.expires) {
		c.mu.RUnlock()
		return e.order, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[number]; ok && c.now().Before(e.expires) {
		return e.order, nil
	}
	order, err := c.loadFunc(ctx, number)
	if err != nil {
		return shopify.Order{}, err
	}
	c.entries[number] = entry{order: order, expires: c.now().Add(c.ttl)}
	c.evictExpired()
	return order, nil
}

func (c *OrderCache) Invalidate(number shopify.OrderNumber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, number)
}

// evictExpired must be called with the write lock held.
func (c *OrderCache) evictExpired() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}
