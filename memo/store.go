package memo

import (
	"context"

	"github.com/goliatone/go-memoize/canonical"
)

// Store is the capability contract every cache backend implements. A nil
// stored value and an absent entry are distinguishable: Get reports
// presence explicitly.
type Store interface {
	// Init performs idempotent setup, such as directory creation. It is
	// called before every lookup and must be cheap to repeat.
	Init(ctx context.Context) error

	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key canonical.DigestKey) (any, bool, error)

	// Set stores value under key, replacing any previous entry.
	Set(ctx context.Context, key canonical.DigestKey, value any) error

	// Clear removes the entries this store instance knows about and
	// returns how many it removed.
	Clear(ctx context.Context) (int, error)
}

// Key is the unhashed cache key material for one call: the positional
// arguments and an optional mapping of named arguments. It is ephemeral,
// built per call and never persisted.
type Key struct {
	Args   []any
	KwArgs map[string]any
}

// digest condenses the key through the provided encoder. Nil argument
// collections normalize to empty ones so Key{} and Key{Args: []any{}}
// address the same entry.
func (k Key) digest(enc *canonical.Encoder) (canonical.DigestKey, error) {
	args := k.Args
	if args == nil {
		args = []any{}
	}
	kwargs := k.KwArgs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return enc.Digest([]any{args, kwargs})
}
