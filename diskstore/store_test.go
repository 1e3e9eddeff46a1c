package diskstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-memoize/canonical"
	"github.com/goliatone/go-memoize/memo"
	"github.com/goliatone/go-memoize/pkg/testsupport"
)

func newTestStore(t *testing.T, baseDir string) *Store {
	t.Helper()
	store, err := New(Config{BaseDir: baseDir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func digestOf(t *testing.T, v any) canonical.DigestKey {
	t.Helper()
	k, err := canonical.Digest(v)
	if err != nil {
		t.Fatalf("Digest(%v) error = %v", v, err)
	}
	return k
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(t *testing.T) Config
		wantErr bool
	}{
		{
			name:    "empty base dir",
			cfg:     func(t *testing.T) Config { return Config{BaseDir: "  "} },
			wantErr: true,
		},
		{
			name: "base path is a file",
			cfg: func(t *testing.T) Config {
				dir := t.TempDir()
				file := filepath.Join(dir, "not-a-dir")
				if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
				return Config{BaseDir: file}
			},
			wantErr: true,
		},
		{
			name:    "missing dir is fine",
			cfg:     func(t *testing.T) Config { return Config{BaseDir: filepath.Join(t.TempDir(), "later")} },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg(t).Validate()
			if tt.wantErr {
				var cerr *memo.ConfigError
				if !errors.As(err, &cerr) {
					t.Errorf("expected ConfigError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestStore_InitIsLazyAndIdempotent(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "cache")
	store := newTestStore(t, base)

	if _, err := os.Stat(base); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("base dir must not exist before Init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("repeated Init() error = %v", err)
	}
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		t.Fatalf("base dir missing after Init: %v", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	type payload struct {
		Name string
		Size int
	}

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int comes back as int64", value: 42, want: int64(42)},
		{name: "float", value: 2.5, want: 2.5},
		{name: "nil value", value: nil, want: nil},
		{name: "list", value: []any{"a", int64(1)}, want: []any{"a", int64(1)}},
		{
			name:  "mapping",
			value: map[string]any{"x": int64(1), "y": []any{"z"}},
			want:  map[string]any{"x": int64(1), "y": []any{"z"}},
		},
		{
			name:  "struct comes back canonical",
			value: payload{Name: "blob", Size: 3},
			want:  map[string]any{"Name": "blob", "Size": int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := digestOf(t, tt.name)
			if err := store.Set(ctx, key, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, ok, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !ok {
				t.Fatal("Get() reported absent after Set")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Get() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestStore_FileLayout(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := newTestStore(t, base)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	key := digestOf(t, "layout")
	if err := store.Set(ctx, key, "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	want := filepath.Join(base, key.Hex()+FileExt)
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected blob at %s: %v", want, err)
	}

	// No leftover temp files from the atomic write.
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestStore_AbsentKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, t.TempDir())
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, ok, err := store.Get(ctx, digestOf(t, "never-set")); err != nil || ok {
		t.Errorf("Get(absent) = (ok=%v, err=%v), want clean miss", ok, err)
	}
}

func TestStore_CorruptBlobIsStorageError(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := newTestStore(t, base)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	key := digestOf(t, "corrupt")
	testsupport.SeedCacheDir(t, base, map[string][]byte{
		key.Hex() + FileExt: {0xc1, 0xff, 0x00},
	})

	_, _, err := store.Get(ctx, key)
	var serr *memo.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError for corrupt blob, got %v", err)
	}
}

func TestStore_ClearRemovesKnownFiles(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "cache")
	store := newTestStore(t, base)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	keys := make([]canonical.DigestKey, 0, 3)
	for _, v := range []string{"a", "b", "c"} {
		key := digestOf(t, v)
		if err := store.Set(ctx, key, v); err != nil {
			t.Fatalf("Set(%s) error = %v", v, err)
		}
		keys = append(keys, key)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("Clear() = %d, want 3", removed)
	}
	for _, key := range keys {
		if _, ok, err := store.Get(ctx, key); err != nil || ok {
			t.Errorf("key %s still present after Clear (ok=%v, err=%v)", key, ok, err)
		}
	}

	// Init created the base dir, so Clear removes it once empty.
	if _, err := os.Stat(base); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("newly created base dir should be gone after Clear, stat err = %v", err)
	}
}

func TestStore_ClearSkipsFilesRemovedOutOfBand(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := newTestStore(t, base)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	keep := digestOf(t, "keep")
	gone := digestOf(t, "gone")
	for _, key := range []canonical.DigestKey{keep, gone} {
		if err := store.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := os.Remove(filepath.Join(base, gone.Hex()+FileExt)); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Clear() = %d, want 1 (out-of-band deletion must not count)", removed)
	}
}

func TestStore_ClearKeepsPreexistingBaseDir(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir() // exists before the store's first Init
	store := newTestStore(t, base)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := store.Set(ctx, digestOf(t, "x"), "x"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		t.Errorf("pre-existing base dir must survive Clear: %v", err)
	}
}

func TestStore_ClearScopedToInstance(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	writer := newTestStore(t, base)
	if err := writer.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	for _, v := range []string{"one", "two"} {
		if err := writer.Set(ctx, digestOf(t, v), v); err != nil {
			t.Fatalf("Set(%s) error = %v", v, err)
		}
	}

	// A fresh instance over the same directory knows nothing.
	bystander := newTestStore(t, base)
	if err := bystander.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	removed, err := bystander.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("Clear() on fresh instance = %d, want 0", removed)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("files in dir after foreign Clear = %d, want 2", len(entries))
	}

	// Reading a foreign file makes it known; clearing then removes it.
	key := digestOf(t, "one")
	if _, ok, err := bystander.Get(ctx, key); err != nil || !ok {
		t.Fatalf("Get(foreign) = (ok=%v, err=%v), want hit", ok, err)
	}
	removed, err = bystander.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Clear() after read = %d, want 1", removed)
	}
}

func TestStore_MemoizerRestoresTypedResults(t *testing.T) {
	ctx := context.Background()

	type summary struct {
		Name  string
		Count int
	}

	t.Run("int result", func(t *testing.T) {
		store := newTestStore(t, filepath.Join(t.TempDir(), "cache"))
		m := memo.New(store)

		calls := 0
		fn := memo.Wrap1(m, func(ctx context.Context, n int) (int, error) {
			calls++
			return n * n, nil
		})

		if got, err := fn(ctx, 7); err != nil || got != 49 {
			t.Fatalf("fn(7) = (%v, %v), want (49, nil)", got, err)
		}
		got, err := fn(ctx, 7)
		if err != nil {
			t.Fatalf("fn(7) hit error = %v", err)
		}
		if got != 49 {
			t.Errorf("fn(7) hit = %d, want 49", got)
		}
		if calls != 1 {
			t.Errorf("compute calls = %d, want 1", calls)
		}
	})

	t.Run("struct result", func(t *testing.T) {
		store := newTestStore(t, filepath.Join(t.TempDir(), "cache"))
		m := memo.New(store)

		calls := 0
		fn := memo.Wrap1(m, func(ctx context.Context, name string) (summary, error) {
			calls++
			return summary{Name: name, Count: 3}, nil
		})

		first, err := fn(ctx, "alpha")
		if err != nil {
			t.Fatalf("fn() error = %v", err)
		}
		second, err := fn(ctx, "alpha")
		if err != nil {
			t.Fatalf("fn() hit error = %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("hit = %#v, want %#v", second, first)
		}
		if calls != 1 {
			t.Errorf("compute calls = %d, want 1", calls)
		}
	})
}

func TestStore_WithMemoizer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, filepath.Join(t.TempDir(), "cache"))
	m := memo.New(store)

	calls := 0
	fn := memo.Wrap1(m, func(ctx context.Context, name string) (map[string]any, error) {
		calls++
		return map[string]any{"name": name, "rank": int64(1)}, nil
	})

	first, err := fn(ctx, "alpha")
	if err != nil {
		t.Fatalf("fn() error = %v", err)
	}
	second, err := fn(ctx, "alpha")
	if err != nil {
		t.Fatalf("fn() repeat error = %v", err)
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("hit returned different value: %#v != %#v", first, second)
	}
}
