package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := mc.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}
}

func TestMemoryCache_MissIsTyped(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	_, err := mc.Get(context.Background(), "absent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "k", []byte("v"), -time.Second)

	if _, err := mc.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired entry still served: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Error("Exists reports an expired entry")
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "k", []byte("v"), time.Minute)
	mc.Delete(ctx, "k")

	if _, err := mc.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("deleted entry still served: %v", err)
	}
}

func TestMemoryCache_ClearPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, ContentKey("101", "doc-1"), []byte("a"), time.Minute)
	mc.Set(ctx, ContentKey("101", "doc-2"), []byte("b"), time.Minute)
	mc.Set(ctx, PatientQueryKey("12345678-9"), []byte("c"), time.Minute)

	if err := mc.Clear(ctx, "node:101:*"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, err := mc.Get(ctx, ContentKey("101", "doc-1")); !errors.Is(err, ErrCacheMiss) {
		t.Error("node key survived Clear")
	}
	if _, err := mc.Get(ctx, PatientQueryKey("12345678-9")); err != nil {
		t.Error("registry key was cleared by an unrelated pattern")
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := ContentKey("101", "doc-1"); got != "node:101:doc:doc-1:content" {
		t.Errorf("ContentKey = %q", got)
	}
	if got := PatientQueryKey("12345678-9"); got != "registry:patient:12345678-9" {
		t.Errorf("PatientQueryKey = %q", got)
	}
}
