package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLockClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestLockAcquireRelease(t *testing.T) {
	client, _ := testLockClient(t)
	ctx := context.Background()

	a := NewLock(client)
	b := NewLock(client)

	ok, err := a.Acquire(ctx, "sync:github-user-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire() = %v, %v; want true", ok, err)
	}

	ok, err = b.Acquire(ctx, "sync:github-user-1", time.Minute)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if ok {
		t.Fatal("second holder acquired a held lock")
	}

	if err := a.Release(ctx, "sync:github-user-1"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	ok, err = b.Acquire(ctx, "sync:github-user-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire() after release = %v, %v; want true", ok, err)
	}
}

func TestLockReleaseOnlyByOwner(t *testing.T) {
	client, mr := testLockClient(t)
	ctx := context.Background()

	owner := NewLock(client)
	thief := NewLock(client)

	if ok, _ := owner.Acquire(ctx, "job", time.Minute); !ok {
		t.Fatal("owner could not acquire")
	}
	if err := thief.Release(ctx, "job"); err != nil {
		t.Fatalf("foreign Release() error = %v", err)
	}
	if !mr.Exists("ait:lock:job") {
		t.Error("foreign Release() deleted the owner's lock")
	}
}

func TestLockExtend(t *testing.T) {
	client, mr := testLockClient(t)
	ctx := context.Background()

	owner := NewLock(client)
	if ok, _ := owner.Acquire(ctx, "job", time.Second); !ok {
		t.Fatal("could not acquire")
	}
	if err := owner.Extend(ctx, "job", time.Minute); err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if ttl := mr.TTL("ait:lock:job"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	other := NewLock(client)
	if err := other.Extend(ctx, "job", time.Hour); err == nil {
		t.Error("foreign Extend() should fail")
	}
}

func TestLockExpiresByTTL(t *testing.T) {
	client, mr := testLockClient(t)
	ctx := context.Background()

	a := NewLock(client)
	if ok, _ := a.Acquire(ctx, "job", time.Second); !ok {
		t.Fatal("could not acquire")
	}
	mr.FastForward(2 * time.Second)

	b := NewLock(client)
	ok, err := b.Acquire(ctx, "job", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire() after expiry = %v, %v; want true", ok, err)
	}
}
