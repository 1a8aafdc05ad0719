package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{TTL: time.Hour})
	t.Cleanup(func() { _ = s.Close(ctx) })

	session := Session{JTI: "jti-1", UserID: 1, Username: "alice"}
	if err := s.Save(ctx, session); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.Get(ctx, "jti-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.UserID != 1 || got.Username != "alice" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.ExpiresAt.IsZero() {
		t.Fatal("Save did not apply the default TTL")
	}

	active, err := s.IsActive(ctx, "jti-1")
	if err != nil || !active {
		t.Fatalf("IsActive = %v, %v; want true", active, err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 || list[0] != "jti-1" {
		t.Fatalf("unexpected list: %v", list)
	}

	if err := s.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if active, _ := s.IsActive(ctx, "jti-1"); active {
		t.Fatal("session active after revoke")
	}
	if _, err := s.Get(ctx, "jti-1"); err == nil {
		t.Fatal("expected missing session after revoke")
	}
}

func TestMemoryStoreRejectsEmptyJTI(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{})
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Save(ctx, Session{}); err == nil {
		t.Fatal("expected error for empty jti")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{TTL: time.Hour})
	t.Cleanup(func() { _ = s.Close(ctx) })

	expired := Session{
		JTI:       "old",
		UserID:    1,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := s.Save(ctx, expired); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if active, _ := s.IsActive(ctx, "old"); active {
		t.Fatal("expired session reported active")
	}
	if _, err := s.Get(ctx, "old"); err == nil {
		t.Fatal("expected error for expired session")
	}

	if err := s.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired error: %v", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats["total"] != 0 {
		t.Fatalf("expected empty store after cleanup, stats: %v", stats)
	}
}
