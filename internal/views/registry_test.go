package views

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/testutil"
)

func TestMemoryRegistry_UnseenKeysAreStale(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	assert.True(t, r.IsStale(ctx, "cart:u1"))
	_, ok := r.Get(ctx, "cart:u1")
	assert.False(t, ok)
}

func TestMemoryRegistry_PutGetInvalidate(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	warm(t, r, "cart:u1", 3)
	assert.False(t, r.IsStale(ctx, "cart:u1"))
	v, ok := r.Get(ctx, "cart:u1")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	r.Invalidate(ctx, "cart:u1")
	assert.True(t, r.IsStale(ctx, "cart:u1"))
}

func TestMemoryRegistry_FlagsAreIndependent(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	k := MembershipKey("u", "k")
	k2 := MembershipKey("u", "k2")
	warm(t, r, k, true)
	warm(t, r, k2, true)

	r.Invalidate(ctx, k)
	assert.True(t, r.IsStale(ctx, k))
	assert.False(t, r.IsStale(ctx, k2))
}

func TestMemoryRegistry_OwnerSetDoesNotCoverItems(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	warm(t, r, MembershipKey("u", "a"), true)
	warm(t, r, MembershipKey("u", "b"), false)
	warm(t, r, MembershipSetKey("u"), []string{"a"})

	r.Invalidate(ctx, MembershipSetKey("u"))

	assert.True(t, r.IsStale(ctx, MembershipSetKey("u")))
	assert.False(t, r.IsStale(ctx, MembershipKey("u", "a")))
	assert.False(t, r.IsStale(ctx, MembershipKey("u", "b")))
	assert.Equal(t, 2, r.Len())
}

func TestMemoryRegistry_PutAfterInvalidateIsSuperseded(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	gen, err := r.Generation(ctx, "cart:u1")
	require.NoError(t, err)

	// Keys never cached still get a new generation.
	r.Invalidate(ctx, "cart:u1")

	assert.ErrorIs(t, r.Put(ctx, "cart:u1", 1, gen), ErrSuperseded)
	assert.True(t, r.IsStale(ctx, "cart:u1"))

	gen, err = r.Generation(ctx, "cart:u1")
	require.NoError(t, err)
	require.NoError(t, r.Put(ctx, "cart:u1", 2, gen))
	v, ok := r.Get(ctx, "cart:u1")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMemoryRegistry_Subscribe(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	ch, cancel := r.Subscribe(MembershipKey("u", "k"))

	r.Invalidate(ctx, CollectionKey("cart", "u"))
	r.Invalidate(ctx, MembershipSetKey("u"))
	r.Invalidate(ctx, MembershipKey("u", "k"))

	select {
	case k := <-ch:
		assert.Equal(t, MembershipKey("u", "k"), k)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	select {
	case k := <-ch:
		t.Fatalf("unexpected notification %s", k)
	default:
	}

	cancel()
	cancel() // idempotent
	_, open := <-ch
	assert.False(t, open)

	// Invalidation after cancel still works and must not panic.
	r.Invalidate(ctx, MembershipKey("u", "k"))
}

func TestRedisRegistry_DegradesWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	r := NewRedisRegistry(client, testutil.DiscardLogger())
	ctx := context.Background()

	assert.True(t, r.IsStale(ctx, "cart:u1"))
	_, ok := r.Get(ctx, "cart:u1")
	assert.False(t, ok)
	_, err := r.Generation(ctx, "cart:u1")
	assert.Error(t, err)
	assert.Error(t, r.Put(ctx, "cart:u1", 1, 0))

	ch, cancel := r.Subscribe("cart:u1")
	defer cancel()
	r.Invalidate(ctx, "cart:u1")
	select {
	case k := <-ch:
		assert.Equal(t, Key("cart:u1"), k)
	case <-time.After(time.Second):
		t.Fatal("subscribers must be notified even when redis is down")
	}
}

func TestRedisRegistry_PrefixOption(t *testing.T) {
	r := NewRedisRegistry(nil, testutil.DiscardLogger(), WithRedisPrefix("test:"), WithRedisTTL(time.Minute))
	assert.Equal(t, "test:cart:u1", r.redisKey("cart:u1"))
	assert.Equal(t, "test:gen:cart:u1", r.genKey("cart:u1"))
	assert.Equal(t, time.Minute, r.ttl)
}

func newMiniRedisRegistry(t *testing.T) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRegistry(client, testutil.DiscardLogger()), mr
}

func TestRedisRegistry_PutGetInvalidate(t *testing.T) {
	r, mr := newMiniRedisRegistry(t)
	ctx := context.Background()

	assert.True(t, r.IsStale(ctx, "cart:u1"))
	warm(t, r, "cart:u1", []string{"a", "b"})
	assert.False(t, r.IsStale(ctx, "cart:u1"))

	v, ok := r.Get(ctx, "cart:u1")
	require.True(t, ok)
	assert.JSONEq(t, `["a","b"]`, string(v.(json.RawMessage)))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"cart:u1"))

	r.Invalidate(ctx, "cart:u1")
	assert.True(t, r.IsStale(ctx, "cart:u1"))
	assert.False(t, mr.Exists(DefaultRedisPrefix+"cart:u1"))

	gen, err := r.Generation(ctx, "cart:u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
}

func TestRedisRegistry_ExactKeysOnly(t *testing.T) {
	r, _ := newMiniRedisRegistry(t)
	ctx := context.Background()

	warm(t, r, MembershipSetKey("u"), []string{"a"})
	warm(t, r, MembershipKey("u", "a"), true)
	// Glob metacharacters in a key are plain bytes.
	odd := MembershipKey("u", "*?[")
	warm(t, r, odd, true)

	r.Invalidate(ctx, MembershipSetKey("u"))

	assert.True(t, r.IsStale(ctx, MembershipSetKey("u")))
	assert.False(t, r.IsStale(ctx, MembershipKey("u", "a")))
	assert.False(t, r.IsStale(ctx, odd))

	r.Invalidate(ctx, odd)
	assert.True(t, r.IsStale(ctx, odd))
	assert.False(t, r.IsStale(ctx, MembershipKey("u", "a")))
}

func TestRedisRegistry_PutAfterInvalidateIsSuperseded(t *testing.T) {
	r, _ := newMiniRedisRegistry(t)
	ctx := context.Background()

	gen, err := r.Generation(ctx, "cart-count:u1")
	require.NoError(t, err)
	r.Invalidate(ctx, "cart-count:u1")

	assert.ErrorIs(t, r.Put(ctx, "cart-count:u1", 3, gen), ErrSuperseded)
	assert.True(t, r.IsStale(ctx, "cart-count:u1"))
}

func TestRedisRegistry_LoadDecodesThroughCoordinator(t *testing.T) {
	r, _ := newMiniRedisRegistry(t)
	g, err := DefaultGraph()
	require.NoError(t, err)
	c := NewCoordinator(g, r, testutil.DiscardLogger())
	ctx := context.Background()

	type row struct {
		Item string `json:"item"`
		Qty  int    `json:"qty"`
	}
	calls := 0
	fetch := func(context.Context) ([]row, error) {
		calls++
		return []row{{Item: "k", Qty: 2}}, nil
	}

	v, err := Load(ctx, c, CollectionKey("cart", "u"), fetch)
	require.NoError(t, err)
	assert.Equal(t, []row{{Item: "k", Qty: 2}}, v)

	v, err = Load(ctx, c, CollectionKey("cart", "u"), fetch)
	require.NoError(t, err)
	assert.Equal(t, []row{{Item: "k", Qty: 2}}, v)
	assert.Equal(t, 1, calls, "second read decodes the shared JSON value")

	c.Invalidate(ctx, KindCartAdd, Params{Owner: "u"})
	_, err = Load(ctx, c, CollectionKey("cart", "u"), fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRedisRegistry_TTLExpiresValues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := NewRedisRegistry(client, testutil.DiscardLogger(), WithRedisTTL(time.Minute))
	ctx := context.Background()

	warm(t, r, "approval-stats", map[string]int{"pending": 1})
	assert.False(t, r.IsStale(ctx, "approval-stats"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, r.IsStale(ctx, "approval-stats"))
}
