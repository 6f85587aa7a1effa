package provider

import (
	"context"

	"github.com/driveio/fedfs/pkg/cache"
)

// cachedClient decorates a Client with a path-keyed read cache over Get and
// List. Every mutation path in the store funnels through Reset so stale
// entries never outlive the item they describe.
//
// Key layout:
//
//	item:<path>  cached *Item from Get
//	list:<path>  cached []Item from List
type cachedClient struct {
	Client
	cache *cache.PathCache
}

func newCachedClient(inner Client, c *cache.PathCache) *cachedClient {
	return &cachedClient{Client: inner, cache: c}
}

func itemKey(path string) string { return "item:" + path }
func listKey(path string) string { return "list:" + path }

func (c *cachedClient) Get(ctx context.Context, path string) (*Item, error) {
	if v, ok := c.cache.Get(itemKey(path)); ok {
		item := v.(Item)
		return &item, nil
	}
	item, err := c.Client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Put(itemKey(path), *item)
	return item, nil
}

func (c *cachedClient) List(ctx context.Context, parentPath string) ([]Item, error) {
	if v, ok := c.cache.Get(listKey(parentPath)); ok {
		cached := v.([]Item)
		out := make([]Item, len(cached))
		copy(out, cached)
		return out, nil
	}
	items, err := c.Client.List(ctx, parentPath)
	if err != nil {
		return nil, err
	}
	stored := make([]Item, len(items))
	copy(stored, items)
	c.cache.Put(listKey(parentPath), stored)
	return items, nil
}

// Reset drops the cached item and child listing for each path. Callers pass
// the mutated path plus every parent whose listing the mutation changed.
func (c *cachedClient) Reset(paths ...string) {
	keys := make([]string, 0, len(paths)*2)
	for _, p := range paths {
		keys = append(keys, itemKey(p), listKey(p))
	}
	c.cache.Invalidate(keys...)
}

var _ Client = (*cachedClient)(nil)
