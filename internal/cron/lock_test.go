package cron

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "sm:cron-worker:lock:test", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("fresh lock should be acquirable")
	}

	other, err := NewRedisLock(store, "sm:cron-worker:lock:test", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if ok {
		t.Fatal("held lock must not be acquirable by another worker")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if !ok {
		t.Fatal("released lock should be acquirable again")
	}
}

func TestRedisLock_ReleaseOnlyOwnValue(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "sm:cron-worker:lock:test", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	if ok, err := lock.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("Acquire: ok=%v err=%v", ok, err)
	}

	// lock expired and another worker took it over
	store.values["sm:cron-worker:lock:test"] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.values["sm:cron-worker:lock:test"] != "someone-else" {
		t.Fatal("release must not delete another worker's lock")
	}
}

func TestRedisLock_ReleaseWithoutAcquireIsNoOp(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "sm:cron-worker:lock:test", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
}
