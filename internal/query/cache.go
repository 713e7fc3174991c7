package query

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFreshness is the window during which a cached entry is served
	// without touching the network.
	DefaultFreshness = 30 * time.Second

	defaultMaxEntries = 512
)

// FetchFunc loads one query's data from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// Cache is the read-through query cache. It is an explicit injectable object
// with its own lifecycle (populated on first read, cleared in full on
// logout), never package-level state.
//
// Semantics per entry:
//   - fresh (within the freshness window, not invalidated): served directly,
//     no network call;
//   - stale or invalidated: the cached value is returned immediately and a
//     background revalidation is kicked off (stale-while-revalidate);
//   - absent: fetched synchronously, with concurrent requests for the same
//     key collapsed into a single flight.
//
// Failed revalidation keeps the previously cached data visible. Reads are
// retried once; the cache never issues mutations.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List
	subs       map[string]int
	freshness  time.Duration
	maxEntries int
	now        func() time.Time

	sf singleflight.Group

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type entry struct {
	key       Key
	data      any
	fetchedAt time.Time
	invalid   bool
	// fetch is the most recent fetcher for this key, reused when an
	// invalidation triggers a background refetch of a subscribed entry.
	fetch FetchFunc
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFreshness overrides the freshness window.
func WithFreshness(d time.Duration) CacheOption {
	return func(c *Cache) { c.freshness = d }
}

// WithMaxEntries bounds the number of cached queries; the least recently
// used entry is evicted when the bound is exceeded.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) { c.maxEntries = n }
}

// WithClock injects a clock, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
		subs:        make(map[string]int),
		freshness:   DefaultFreshness,
		maxEntries:  defaultMaxEntries,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the data for key, going to the network only when the cache
// cannot serve it fresh. The returned value is the cached one whenever an
// entry exists, even if stale: the stale value paints first and a
// background revalidation replaces it.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	ck := key.String()

	c.mu.Lock()
	if elem, ok := c.entries[ck]; ok {
		e := elem.Value.(*entry)
		e.fetch = fetch
		c.lru.MoveToFront(elem)
		data := e.data
		needsRevalidate := e.invalid || c.now().Sub(e.fetchedAt) >= c.freshness
		c.mu.Unlock()

		if needsRevalidate {
			go c.revalidate(context.WithoutCancel(ctx), key, fetch)
		}
		return data, nil
	}
	c.mu.Unlock()

	return c.load(ctx, key, fetch)
}

// Get returns the typed cached-or-fetched value for key. This is the
// package-level generic counterpart of Cache.Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	data, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query: cached value for %q is %T, want %T", key.String(), v, zero)
	}
	return data, nil
}

// load performs the deduplicated initial fetch for a key with no entry yet.
func (c *Cache) load(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	ck := key.String()
	v, err, _ := c.sf.Do(ck, func() (any, error) {
		data, err := fetch(ctx)
		if err != nil {
			// One built-in retry for idempotent reads, nothing more.
			data, err = fetch(ctx)
		}
		if err != nil {
			return nil, err
		}
		c.store(key, data, fetch)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// revalidate refreshes an existing entry in the background. A failure keeps
// the previously cached data visible; it never clears the entry.
func (c *Cache) revalidate(ctx context.Context, key Key, fetch FetchFunc) {
	ck := key.String()
	_, err, _ := c.sf.Do(ck, func() (any, error) {
		// An earlier flight may have stored fresh data while this
		// goroutine waited its turn; skip the fetch in that case.
		if cached, stale := c.revalidationState(ck); !stale {
			return cached, nil
		}
		data, err := fetch(ctx)
		if err != nil {
			data, err = fetch(ctx)
		}
		if err != nil {
			return nil, err
		}
		c.store(key, data, fetch)
		return data, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Background revalidation failed, keeping cached data",
			"key", ck,
			"error", err)
	}
}

// revalidationState returns ck's cached value and whether the entry is still
// invalid or stale. A missing entry needs no revalidation either.
func (c *Cache) revalidationState(ck string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[ck]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	return e.data, e.invalid || c.now().Sub(e.fetchedAt) >= c.freshness
}

// store records freshly fetched data, clearing any invalidation mark.
func (c *Cache) store(key Key, data any, fetch FetchFunc) {
	ck := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[ck]; ok {
		e := elem.Value.(*entry)
		e.data = data
		e.fetchedAt = c.now()
		e.invalid = false
		e.fetch = fetch
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(&entry{
		key:       key,
		data:      data,
		fetchedAt: c.now(),
		fetch:     fetch,
	})
	c.entries[ck] = elem

	if c.lru.Len() > c.maxEntries {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.entries, e.key.String())
	c.lru.Remove(elem)
}

// Invalidate marks every entry in the given groups invalid: their next read
// bypasses the freshness window. Subscribed entries are refetched eagerly in
// the background; unsubscribed ones refetch lazily on next access.
func (c *Cache) Invalidate(groups ...string) {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}

	type refetch struct {
		key   Key
		fetch FetchFunc
	}
	var eager []refetch

	c.mu.Lock()
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if _, hit := set[e.key.Group()]; !hit {
			continue
		}
		e.invalid = true
		if c.subs[e.key.String()] > 0 && e.fetch != nil {
			eager = append(eager, refetch{key: e.key, fetch: e.fetch})
		}
	}
	c.mu.Unlock()

	for _, r := range eager {
		go c.revalidate(context.Background(), r.key, r.fetch)
	}
}

// Subscribe marks a key as actively watched by a mounted view, making it
// eligible for eager background refetch on invalidation. The returned
// function unsubscribes.
func (c *Cache) Subscribe(key Key) func() {
	ck := key.String()
	c.mu.Lock()
	c.subs[ck]++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.subs[ck] > 1 {
				c.subs[ck]--
			} else {
				delete(c.subs, ck)
			}
			c.mu.Unlock()
		})
	}
}

// Clear drops every cached entry. Called on logout; subscriptions survive so
// still-mounted views repopulate on their next read.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Contains reports whether key currently has a cached entry.
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key.String()]
	return ok
}

// Invalidated reports whether key's entry exists and is marked invalid.
func (c *Cache) Invalidated(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key.String()]
	if !ok {
		return false
	}
	return elem.Value.(*entry).invalid
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartCleanup begins periodic removal of entries that have been stale for
// much longer than the freshness window and are not subscribed.
func (c *Cache) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := c.CleanExpired(); removed > 0 {
					slog.Debug("Query cache cleanup completed", "entries_removed", removed)
				}
			case <-c.stopCleanup:
				return
			}
		}
	}()
}

// CleanExpired removes long-stale unsubscribed entries and returns how many
// were dropped.
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-10 * c.freshness)
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if e.fetchedAt.Before(cutoff) && c.subs[e.key.String()] == 0 {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Stop shuts down the cleanup goroutine.
func (c *Cache) Stop() {
	c.shutdownOnce.Do(func() {
		close(c.stopCleanup)
	})
}
