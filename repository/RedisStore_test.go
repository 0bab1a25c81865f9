package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisStoreGetSetExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	store, err := NewRedisStore(ctx, rdb)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	if _, found, err := store.Get(ctx, "cart:s1"); found || err != nil {
		t.Fatalf("missing key: found=%v err=%v", found, err)
	}
	if err := store.Set(ctx, "cart:s1", []byte("[]"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := store.Get(ctx, "cart:s1")
	if err != nil || !found || string(val) != "[]" {
		t.Fatalf("Get = %q, %v, %v", val, found, err)
	}
	mr.FastForward(time.Minute)
	if _, found, _ := store.Get(ctx, "cart:s1"); found {
		t.Error("expected key to expire")
	}
}

func TestRedisStoreDeletePrefixEscapesGlob(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	store, err := NewRedisStore(ctx, rdb)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	for _, k := range []string{
		"catalog:/ru/bags?brand=1",
		"catalog:/ru/bags?brand=2",
		"catalog:/ru/bagsXbrand=3",
		"catalog:/ru/shoes",
	} {
		store.Set(ctx, k, []byte("{}"), 0)
	}

	n, err := store.DeletePrefix(ctx, "catalog:/ru/bags?")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, found, _ := store.Get(ctx, "catalog:/ru/bagsXbrand=3"); !found {
		t.Error("? in the prefix must not act as a wildcard")
	}
}

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob(`a*b?c[d]e\f`)
	want := `a\*b\?c\[d\]e\\f`
	if got != want {
		t.Errorf("escapeGlob = %q, want %q", got, want)
	}
}

func TestRedisRelayDeliversAcrossClients(t *testing.T) {
	mr, rdb := newTestRedis(t)
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { other.Close() })

	local := newRecordingNotifier()
	listener, err := NewRedisRelay(rdb, local)
	if err != nil {
		t.Fatalf("NewRedisRelay: %v", err)
	}
	publisher, err := NewRedisRelay(other, newRecordingNotifier())
	if err != nil {
		t.Fatalf("NewRedisRelay: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	publisher.NotifyCartChanged(ctx, "s1")
	select {
	case got := <-local.ch:
		if got != "s1" {
			t.Errorf("got %q, want s1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRedisRelayFallsBackToLocal(t *testing.T) {
	mr, rdb := newTestRedis(t)
	local := newRecordingNotifier()
	relay, _ := NewRedisRelay(rdb, local)

	mr.Close()
	relay.NotifyCartChanged(context.Background(), "s1")
	if local.count() != 1 {
		t.Errorf("expected local delivery when redis is down, got %d", local.count())
	}
}
