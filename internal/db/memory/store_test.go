package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/tourassist/internal/db"
)

func TestStore_GetSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	if string(again) != "v" {
		t.Error("Get must return a copy")
	}
}

func TestStore_TTL(t *testing.T) {
	s := NewStore()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "k", []byte("v"), time.Second)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("expected key before expiry: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestStore_SetNX(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "k", []byte("1"), 0)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	ok, err = s.SetNX(ctx, "k", []byte("2"), 0)
	if err != nil || ok {
		t.Fatalf("second SetNX = %v, %v", ok, err)
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "1" {
		t.Errorf("value overwritten: %q", got)
	}
}

func TestStore_IncrByAndExpire(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := s.IncrBy(ctx, "c", 2)
		if err != nil {
			t.Fatalf("IncrBy: %v", err)
		}
		if n != int64(2*i) {
			t.Errorf("IncrBy = %d, want %d", n, 2*i)
		}
	}
	_ = s.Expire(ctx, "c", time.Hour, true)
	first := s.items["c"].expires
	_ = s.Expire(ctx, "c", 2*time.Hour, true)
	if !s.items["c"].expires.Equal(first) {
		t.Error("Expire NX must not override existing expiry")
	}

	_ = s.Set(ctx, "bad", []byte("abc"))
	if _, err := s.IncrBy(ctx, "bad", 1); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestStore_Del(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"))
	_ = s.Del(ctx, "k")
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected deleted, got %v", err)
	}
}
