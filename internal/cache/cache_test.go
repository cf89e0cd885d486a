package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissAndSet(t *testing.T) {
	c := New()
	k := Key{Kind: "scripts", Scope: "u1"}

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.SetImmediate(k, []string{"a"})
	v, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)
}

func TestInvalidateKindSpansScopes(t *testing.T) {
	c := New()
	c.SetImmediate(Key{Kind: "scripts", Scope: "u1"}, 1)
	c.SetImmediate(Key{Kind: "scripts", Scope: "u2"}, 2)
	c.SetImmediate(Key{Kind: "contacts", Scope: "u1"}, 3)

	c.Invalidate("scripts")

	_, ok := c.Get(Key{Kind: "scripts", Scope: "u1"})
	assert.False(t, ok)
	_, ok = c.Get(Key{Kind: "scripts", Scope: "u2"})
	assert.False(t, ok)
	_, ok = c.Get(Key{Kind: "contacts", Scope: "u1"})
	assert.True(t, ok, "other kinds untouched")
}

func TestInvalidateScope(t *testing.T) {
	c := New()
	c.SetImmediate(Key{Kind: "scripts", Scope: "u1"}, 1)
	c.SetImmediate(Key{Kind: "contacts", Scope: "u1"}, 2)
	c.SetImmediate(Key{Kind: "scripts", Scope: "u2"}, 3)

	c.InvalidateScope("u1")

	_, ok := c.Get(Key{Kind: "scripts", Scope: "u1"})
	assert.False(t, ok)
	_, ok = c.Get(Key{Kind: "contacts", Scope: "u1"})
	assert.False(t, ok)
	_, ok = c.Get(Key{Kind: "scripts", Scope: "u2"})
	assert.True(t, ok)
}

func TestScopedKeysDoNotCollide(t *testing.T) {
	c := New()
	c.SetImmediate(Key{Kind: "profile", Scope: "alice"}, "alice-data")
	c.SetImmediate(Key{Kind: "profile", Scope: "bob"}, "bob-data")

	v, ok := c.Get(Key{Kind: "profile", Scope: "alice"})
	require.True(t, ok)
	assert.Equal(t, "alice-data", v)
}

func TestClearAllIsSynchronousAndRunsHooks(t *testing.T) {
	c := New()
	c.SetImmediate(Key{Kind: "scripts", Scope: "u1"}, 1)

	hookSawEmpty := false
	c.OnClear(func() { hookSawEmpty = c.Len() == 0 })

	c.ClearAll()

	assert.Zero(t, c.Len())
	assert.True(t, hookSawEmpty, "hooks run after the wipe, before ClearAll returns")
}

func TestGetOrFetch(t *testing.T) {
	c := New()
	k := Key{Kind: "scripts", Scope: "u1"}
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := GetOrFetch(context.Background(), c, k, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = GetOrFetch(context.Background(), c, k, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "second read served from cache")

	c.InvalidateKey(k)
	_, err = GetOrFetch(context.Background(), c, k, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "stale entry forces a re-fetch")
}

func TestGetOrFetchNeverCachesErrors(t *testing.T) {
	c := New()
	k := Key{Kind: "scripts", Scope: "u1"}
	boom := errors.New("boom")
	calls := 0

	_, err := GetOrFetch(context.Background(), c, k, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := GetOrFetch(context.Background(), c, k, func(ctx context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}
