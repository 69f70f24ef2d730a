package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeStore emulates the two Lua scripts the client sends.
type fakeStore struct {
	data    map[string]string
	counts  map[string]int64
	expires map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, counts: map[string]int64{}, expires: map[string]int64{}}
}

func (f *fakeStore) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeStore) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	switch script {
	case windowIncrScript:
		f.counts[keys[0]]++
		if f.counts[keys[0]] == 1 {
			f.expires[keys[0]] = args[0].(int64)
		}
		return redis.NewCmdResult(f.counts[keys[0]], nil)
	case releaseIfOwnerScript:
		if f.data[keys[0]] == args[0].(string) {
			delete(f.data, keys[0])
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unknown script"))
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	client := &Client{store: store}

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "sms:1.2.3.4", 2, 30*time.Second)
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if !allowed || count != i {
			t.Fatalf("hit %d: allowed=%v count=%d", i, allowed, count)
		}
	}
	allowed, count, err := client.FixedWindowAllow(ctx, "sms:1.2.3.4", 2, 30*time.Second)
	if err != nil {
		t.Fatalf("third hit: %v", err)
	}
	if allowed || count != 3 {
		t.Fatalf("expected third hit refused, allowed=%v count=%d", allowed, count)
	}
	if got := store.expires["bh:rate_limit:sms:1.2.3.4"]; got != 30000 {
		t.Fatalf("expected window expiry 30000ms got %d", got)
	}
	if _, _, err := client.FixedWindowAllow(ctx, "x", 1, 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestDelIfValueOnlyDeletesOwner(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	client := &Client{store: store}
	store.data["bh:lock:cron"] = "owner-a"

	if ok, err := client.DelIfValue(ctx, "bh:lock:cron", "owner-b"); err != nil || ok {
		t.Fatalf("foreign owner deleted lock: ok=%v err=%v", ok, err)
	}
	if ok, err := client.DelIfValue(ctx, "bh:lock:cron", "owner-a"); err != nil || !ok {
		t.Fatalf("owner could not release: ok=%v err=%v", ok, err)
	}
	if _, err := client.Get(ctx, "bh:lock:cron"); !IsMiss(err) {
		t.Fatalf("expected lock gone, got %v", err)
	}
}

func TestCachedValueExpiresToMiss(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeStore()}

	key := client.CacheKey("order-stats")
	if _, err := client.Get(ctx, key); !IsMiss(err) {
		t.Fatalf("expected miss before set, got %v", err)
	}
	if err := client.Set(ctx, key, `{"total":3}`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if value, err := client.Get(ctx, key); err != nil || value != `{"total":3}` {
		t.Fatalf("unexpected cached value %q err=%v", value, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !IsMiss(err) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
	if IsMiss(fmt.Errorf("dial: %w", context.DeadlineExceeded)) {
		t.Fatalf("transport errors are not misses")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from zero client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on zero client: %v", err)
	}
}

func TestKeys(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("scope", "id"): "bh:idempotency:scope:id",
		client.RateLimitKey(" scope "):      "bh:rate_limit:scope",
		client.CacheKey("order-stats"):      "bh:cache:order-stats",
		client.LockKey("cron"):              "bh:lock:cron",
		client.IdempotencyKey("", "id"):     "bh:idempotency:id",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s got %s", want, got)
		}
	}
}
