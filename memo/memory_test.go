package memo

import (
	"context"
	"testing"

	"github.com/goliatone/go-memoize/canonical"
)

func digestOf(t *testing.T, v any) canonical.DigestKey {
	t.Helper()
	k, err := canonical.Digest(v)
	if err != nil {
		t.Fatalf("Digest(%v) error = %v", v, err)
	}
	return k
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	key := digestOf(t, "round-trip")
	if err := store.Set(ctx, key, 42); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() reported absent after Set")
	}
	if got != 42 {
		t.Errorf("Get() = %v, want 42", got)
	}
}

func TestMemoryStore_AbsentVsNil(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	missing := digestOf(t, "missing")
	if _, ok, err := store.Get(ctx, missing); err != nil || ok {
		t.Fatalf("Get(missing) = (ok=%v, err=%v), want absent", ok, err)
	}

	stored := digestOf(t, "stored-nil")
	if err := store.Set(ctx, stored, nil); err != nil {
		t.Fatalf("Set(nil) error = %v", err)
	}
	got, ok, err := store.Get(ctx, stored)
	if err != nil {
		t.Fatalf("Get(stored nil) error = %v", err)
	}
	if !ok {
		t.Error("stored nil must be reported present")
	}
	if got != nil {
		t.Errorf("stored nil = %v, want nil", got)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		if err := store.Set(ctx, digestOf(t, k), k); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != len(keys) {
		t.Errorf("Clear() = %d, want %d", removed, len(keys))
	}

	for _, k := range keys {
		if _, ok, _ := store.Get(ctx, digestOf(t, k)); ok {
			t.Errorf("key %s still present after Clear", k)
		}
	}

	// Init is idempotent and usable after Clear.
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() after Clear error = %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("repeated Init() error = %v", err)
	}
}
