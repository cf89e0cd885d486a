// Package cache is the client's query cache: one shared, mutable map of
// remote query results keyed by logical resource identity. It is written
// only by the auth state machine and the mutation paths; everything else
// reads through it. Keeping every cross-account-sensitive entry keyed by
// subject id and wiping the whole cache on identity transitions is what
// prevents one account's data from ever rendering under another.
package cache

import (
	"context"
	"sync"
)

// Key identifies one cached query result: the resource kind ("scripts",
// "profile", "pending_users", ...) plus the scope it belongs to, usually a
// subject id. Global projections use an empty scope.
type Key struct {
	Kind  string
	Scope string
}

type entry struct {
	value any
	stale bool // forced-stale marker: present but must be re-fetched
}

// Cache is safe for concurrent use. ClearAll completes synchronously before
// returning, which is what lets callers order "clear cache" strictly before
// "navigate" on sign-out.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry
	onClear []func()
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[Key]entry{}}
}

// OnClear registers a hook run synchronously whenever ClearAll executes.
// Used to flush the HTTP-level response cache in the same stroke, so no
// second-level cache can outlive an identity transition.
func (c *Cache) OnClear(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClear = append(c.onClear, fn)
}

// Get returns the cached value for k. ok is false when the entry is absent
// or has been marked stale.
func (c *Cache) Get(k Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || e.stale {
		return nil, false
	}
	return e.value, true
}

// SetImmediate writes a value optimistically, typically right after a
// mutation, so reads racing the next round trip see consistent data instead
// of a loading gap.
func (c *Cache) SetImmediate(k Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{value: v}
}

// Invalidate marks every entry of the given kinds stale, across all scopes.
func (c *Cache) Invalidate(kinds ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range kinds {
		for k, e := range c.entries {
			if k.Kind == kind {
				e.stale = true
				c.entries[k] = e
			}
		}
	}
}

// InvalidateKey marks a single entry stale.
func (c *Cache) InvalidateKey(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok {
		e.stale = true
		c.entries[k] = e
	}
}

// InvalidateScope marks everything belonging to one scope (subject) stale.
func (c *Cache) InvalidateScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if k.Scope == scope {
			e.stale = true
			c.entries[k] = e
		}
	}
}

// ClearAll wipes every entry and runs the registered clear hooks before
// returning. Used on sign-out and whenever the session's subject changes.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	c.entries = map[Key]entry{}
	hooks := make([]func(), len(c.onClear))
	copy(hooks, c.onClear)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Len reports the number of live entries (stale included).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrFetch reads k through the cache: a hit of the right type is returned
// as-is, otherwise fetch runs and its result is stored. Errors are never
// cached.
func GetOrFetch[T any](ctx context.Context, c *Cache, k Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(k); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.SetImmediate(k, v)
	return v, nil
}
