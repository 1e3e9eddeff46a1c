// Package memo binds cache stores to computations.
//
// # Overview
//
// The package exports the Store contract implemented by every backend and
// the Memoizer that derives a digest key from a call's arguments, consults
// the store, and computes and stores on a miss.
//
// # Basic Usage
//
//	m := memo.New(memo.NewMemoryStore())
//
//	expensive := memo.Wrap1(m, func(ctx context.Context, n int) (string, error) {
//		return slowLookup(ctx, n)
//	})
//
//	out, err := expensive(ctx, 42) // computes and stores
//	out, err = expensive(ctx, 42)  // served from the store
//
// Lower-level code can call memo.Do directly with an explicit Key when the
// generic wrappers do not fit the call shape.
//
// # Hit and Miss Semantics
//
// Get reports presence explicitly, so a stored nil is a hit and is never
// recomputed. Durable stores hand hits back in canonical form; Do restores
// the caller's result type from it, so a wrapped function returning an int
// or a struct sees the same value on a hit as on the miss that stored it.
// A computation that returns an error is never stored; the error passes
// through to the caller unchanged. Concurrent callers missing on the same
// key may both compute; the last writer wins.
//
// # Stores
//
// MemoryStore lives here. Durable backends are provided by the diskstore
// and yamlstore packages; anything implementing Store plugs in the same
// way.
package memo
