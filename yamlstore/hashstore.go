package yamlstore

import (
	"context"

	"github.com/goliatone/go-memoize/canonical"
	"github.com/goliatone/go-memoize/memo"
)

// hashStore adapts a Store to the memo.Store contract by keying entries
// with the hex form of the digest key.
type hashStore struct {
	store *Store
}

var _ memo.Store = (*hashStore)(nil)

// HashStore returns a memo.Store view of this store so it can back a
// memo.Memoizer alongside the other backends.
func (s *Store) HashStore() memo.Store {
	return &hashStore{store: s}
}

func (h *hashStore) Init(ctx context.Context) error {
	return h.store.Init(ctx)
}

func (h *hashStore) Get(ctx context.Context, key canonical.DigestKey) (any, bool, error) {
	return h.store.Get(ctx, key.Hex())
}

func (h *hashStore) Set(ctx context.Context, key canonical.DigestKey, value any) error {
	return h.store.Set(ctx, key.Hex(), value)
}

func (h *hashStore) Clear(ctx context.Context) (int, error) {
	return h.store.Clear(ctx)
}
