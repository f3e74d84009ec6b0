package admin

import (
	"context"
	"sync"
	"time"
)

// Loader fetches the full current contents of one list.
type Loader[E any] func(ctx context.Context) ([]E, error)

// ListCache is an in-memory snapshot of one entity list. It is only ever
// replaced wholesale by Refresh; nothing patches it locally.
type ListCache[E any] struct {
	load Loader[E]

	mu      sync.RWMutex
	items   []E
	loading bool
	loaded  bool
	err     error
	fetched time.Time
	// seq orders overlapping refreshes so an older fetch never overwrites
	// a newer one.
	seq     uint64
	applied uint64
}

// NewListCache returns an empty cache in the loading state.
func NewListCache[E any](load Loader[E]) *ListCache[E] {
	return &ListCache[E]{load: load, loading: true}
}

// Items returns the current snapshot. Callers must not modify it.
func (c *ListCache[E]) Items() []E {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items
}

func (c *ListCache[E]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Loaded reports whether any refresh has ever succeeded.
func (c *ListCache[E]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the error of the most recent refresh, if it failed.
func (c *ListCache[E]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Age returns the time since the last successful refresh. A cache that was
// never loaded or has been invalidated reports a very large age.
func (c *ListCache[E]) Age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetched.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return time.Since(c.fetched)
}

// Invalidate marks the snapshot as stale without dropping it.
func (c *ListCache[E]) Invalidate() {
	c.mu.Lock()
	c.fetched = time.Time{}
	c.mu.Unlock()
}

// Refresh reloads the list. On failure the previous items are kept and the
// error is returned.
func (c *ListCache[E]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	items, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.seq {
		c.loading = false
	}
	if seq < c.applied {
		return err
	}
	c.applied = seq
	c.err = err
	if err != nil {
		return err
	}
	c.items = items
	c.loaded = true
	c.fetched = time.Now()
	return nil
}
