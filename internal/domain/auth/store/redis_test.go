package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis(Config{
		TTL: time.Hour,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	session := Session{JTI: "jti-redis", UserID: 7, Username: "bob"}
	if err := s.Save(ctx, session); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.Get(ctx, "jti-redis")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.UserID != 7 || got.Username != "bob" {
		t.Fatalf("unexpected session: %+v", got)
	}

	active, err := s.IsActive(ctx, "jti-redis")
	if err != nil || !active {
		t.Fatalf("IsActive = %v, %v; want true", active, err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 || list[0] != "jti-redis" {
		t.Fatalf("unexpected list: %v", list)
	}

	if err := s.Revoke(ctx, "jti-redis"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if active, _ := s.IsActive(ctx, "jti-redis"); active {
		t.Fatal("session active after revoke")
	}
}

func TestRedisStoreHonorsTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis(Config{
		TTL:   time.Minute,
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Save(ctx, Session{JTI: "short", UserID: 1}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if active, _ := s.IsActive(ctx, "short"); active {
		t.Fatal("session active after TTL elapsed")
	}
}

func TestRedisStoreRequiresAddress(t *testing.T) {
	if _, err := NewRedis(Config{Redis: &RedisConfig{}}); err == nil {
		t.Fatal("expected error for missing address")
	}
	if _, err := NewRedis(Config{}); err == nil {
		t.Fatal("expected error for missing redis config")
	}
}

func TestFactorySelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := New(Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("memory driver error: %v", err)
	}
	_ = s.Close(ctx)

	s, err = New(Config{})
	if err != nil {
		t.Fatalf("default driver error: %v", err)
	}
	_ = s.Close(ctx)

	if _, err := New(Config{Driver: "etcd"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
