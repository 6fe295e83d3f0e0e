package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetWithCachedCachesValueAndNull(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(v int) func(context.Context) (int, error) {
		return func(context.Context) (int, error) {
			calls++
			return v, nil
		}
	}
	isEmpty := func(v int) bool { return v == 0 }
	marshal := func(v int) string { return strconv.Itoa(v) }
	unmarshal := func(s string) (int, error) { return strconv.Atoi(s) }

	for i := 0; i < 2; i++ {
		got, err := GetWithCached(ctx, c, "k", time.Minute, time.Second, isEmpty, marshal, unmarshal, fetch(42))
		if err != nil || got != 42 {
			t.Fatalf("got %d, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one fetch, got %d", calls)
	}

	for i := 0; i < 2; i++ {
		got, err := GetWithCached(ctx, c, "empty", time.Minute, time.Second, isEmpty, marshal, unmarshal, fetch(0))
		if err != nil || got != 0 {
			t.Fatalf("got %d, %v", got, err)
		}
	}
	if calls != 2 {
		t.Fatalf("null value should be cached, fetches = %d", calls)
	}
	if v, _ := mr.Get("empty"); v != NullCacheValue {
		t.Fatalf("expected null sentinel, got %q", v)
	}
}

func TestGetWithCachedPropagatesFetchError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")
	_, err := GetWithCached(context.Background(), c, "k", time.Minute, time.Second,
		func(v string) bool { return v == "" },
		func(v string) string { return v },
		func(s string) (string, error) { return s, nil },
		func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("errors must not be cached")
	}
}

func TestDeleteCachedInvalidates(t *testing.T) {
	c, mr := newTestCache(t)
	_ = mr.Set("k", "v")
	if err := DeleteCached(context.Background(), c, "k", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("key should be deleted")
	}
}

func TestCountWindow(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := CountWindow(ctx, c, "rl", time.Minute)
		if err != nil || got != want {
			t.Fatalf("count = %d, %v; want %d", got, err, want)
		}
	}
	if ttl := mr.TTL("rl"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	got, err := CountWindow(ctx, c, "rl", time.Minute)
	if err != nil || got != 1 {
		t.Fatalf("window should reset, got %d, %v", got, err)
	}
}

func TestCountWindowRepairsMissingExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	_ = mr.Set("rl", "5")
	if _, err := CountWindow(context.Background(), c, "rl", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.TTL("rl") <= 0 {
		t.Fatalf("expiry should be restored")
	}
}

func TestJitterTTL(t *testing.T) {
	ttl := time.Hour
	for i := 0; i < 20; i++ {
		got := JitterTTL(ttl)
		if got > ttl || got < ttl-ttl/10 {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
	if JitterTTL(0) != 0 {
		t.Fatalf("zero ttl must stay zero")
	}
}
