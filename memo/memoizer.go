package memo

import (
	"context"
	"fmt"

	"github.com/goliatone/go-memoize/canonical"
	"github.com/vmihailenco/msgpack/v5"
)

// StoreProvider constructs a store on demand. Providers run once per
// memoized call, matching the construct-per-invocation behavior of
// binding a store constructor plus its parameter instead of a ready store.
type StoreProvider func(ctx context.Context) (Store, error)

// Memoizer binds a store, or a store provider, to an encoder. Use New or
// NewWithProvider to construct one.
type Memoizer struct {
	store    Store
	provider StoreProvider
	encoder  *canonical.Encoder
}

// Option configures a Memoizer.
type Option func(*Memoizer)

// WithEncoder replaces the default canonical encoder.
func WithEncoder(enc *canonical.Encoder) Option {
	return func(m *Memoizer) {
		m.encoder = enc
	}
}

// New creates a Memoizer bound to a ready store instance.
func New(store Store, opts ...Option) *Memoizer {
	m := &Memoizer{
		store:   store,
		encoder: canonical.NewEncoder(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewWithProvider creates a Memoizer that obtains its store from provider
// on every call.
func NewWithProvider(provider StoreProvider, opts ...Option) *Memoizer {
	m := &Memoizer{
		provider: provider,
		encoder:  canonical.NewEncoder(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Encoder returns the canonical encoder this memoizer derives keys with.
func (m *Memoizer) Encoder() *canonical.Encoder {
	return m.encoder
}

// storeFor resolves the store for one call.
func (m *Memoizer) storeFor(ctx context.Context) (Store, error) {
	if m.provider != nil {
		return m.provider(ctx)
	}
	return m.store, nil
}

// Clear clears the bound store and returns how many entries it removed.
func (m *Memoizer) Clear(ctx context.Context) (int, error) {
	store, err := m.storeFor(ctx)
	if err != nil {
		return 0, err
	}
	return store.Clear(ctx)
}

// Do performs one memoized call: derive the digest key from key, consult
// the store, and on a miss run compute and store its result. Serialization
// and storage failures abort the whole operation; compute's own errors
// pass through unchanged and are never stored.
func Do[T any](ctx context.Context, m *Memoizer, key Key, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	store, err := m.storeFor(ctx)
	if err != nil {
		return zero, err
	}
	if err := store.Init(ctx); err != nil {
		return zero, err
	}

	dk, err := key.digest(m.encoder)
	if err != nil {
		return zero, err
	}

	cached, ok, err := store.Get(ctx, dk)
	if err != nil {
		return zero, err
	}
	if ok {
		if cached == nil {
			return zero, nil
		}
		if typed, ok := cached.(T); ok {
			return typed, nil
		}
		return materialize[T](cached)
	}

	result, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	if err := store.Set(ctx, dk, result); err != nil {
		return zero, err
	}
	return result, nil
}

// materialize converts a cached value into the caller's result type.
// Durable stores hand back the canonical shape of what was set, so a
// typed result needs a codec round-trip to recover its original form: an
// int64 becomes the caller's int, a map becomes the caller's struct.
func materialize[T any](cached any) (T, error) {
	var out T
	raw, err := msgpack.Marshal(cached)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidResultType, err)
	}
	if err := msgpack.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidResultType, err)
	}
	return out, nil
}

// Wrap1 memoizes a one-argument function, preserving its calling
// convention.
func Wrap1[A, R any](m *Memoizer, fn func(ctx context.Context, a A) (R, error)) func(ctx context.Context, a A) (R, error) {
	return func(ctx context.Context, a A) (R, error) {
		return Do(ctx, m, Key{Args: []any{a}}, func(ctx context.Context) (R, error) {
			return fn(ctx, a)
		})
	}
}

// Wrap2 memoizes a two-argument function.
func Wrap2[A, B, R any](m *Memoizer, fn func(ctx context.Context, a A, b B) (R, error)) func(ctx context.Context, a A, b B) (R, error) {
	return func(ctx context.Context, a A, b B) (R, error) {
		return Do(ctx, m, Key{Args: []any{a, b}}, func(ctx context.Context) (R, error) {
			return fn(ctx, a, b)
		})
	}
}

// Wrap3 memoizes a three-argument function.
func Wrap3[A, B, C, R any](m *Memoizer, fn func(ctx context.Context, a A, b B, c C) (R, error)) func(ctx context.Context, a A, b B, c C) (R, error) {
	return func(ctx context.Context, a A, b B, c C) (R, error) {
		return Do(ctx, m, Key{Args: []any{a, b, c}}, func(ctx context.Context) (R, error) {
			return fn(ctx, a, b, c)
		})
	}
}
