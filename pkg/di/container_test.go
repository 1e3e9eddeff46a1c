package di

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-memoize/diskstore"
	"github.com/goliatone/go-memoize/memo"
)

func TestNewContainer_ValidatesConfig(t *testing.T) {
	_, err := NewContainer(diskstore.Config{BaseDir: ""})
	var cerr *memo.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	c, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() error = %v", err)
	}
	if c.Encoder() == nil {
		t.Error("Encoder() = nil")
	}
	if c.DiskConfig().BaseDir == "" {
		t.Error("DiskConfig().BaseDir is empty")
	}
}

func TestContainer_SharedEncoder(t *testing.T) {
	c, err := NewContainer(diskstore.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}

	m := c.NewMemoizer(c.NewMemoryStore())
	if m.Encoder() != c.Encoder() {
		t.Error("memoizer does not share the container encoder")
	}
}

func TestContainer_DiskMemoizer(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "cache")
	c, err := NewContainer(diskstore.Config{BaseDir: base})
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}

	m, err := c.NewDiskMemoizer()
	if err != nil {
		t.Fatalf("NewDiskMemoizer() error = %v", err)
	}

	calls := 0
	fn := memo.Wrap1(m, func(ctx context.Context, n int) (int64, error) {
		calls++
		return int64(n * n), nil
	})

	if got, err := fn(ctx, 4); err != nil || got != 16 {
		t.Fatalf("fn(4) = (%v, %v), want (16, nil)", got, err)
	}
	if got, err := fn(ctx, 4); err != nil || got != 16 {
		t.Fatalf("fn(4) repeat = (%v, %v), want (16, nil)", got, err)
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}
}

func TestContainer_YAMLStore(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(diskstore.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}

	store, err := c.NewYAMLStore(filepath.Join(t.TempDir(), "cache.yaml"))
	if err != nil {
		t.Fatalf("NewYAMLStore() error = %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, ok, err := store.Get(ctx, "k"); err != nil || !ok || got != "v" {
		t.Errorf("Get() = (%v, %v, %v), want (v, true, nil)", got, ok, err)
	}
}
