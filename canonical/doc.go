// Package canonical reduces arbitrary Go values to a canonical primitive
// form and condenses that form into a deterministic digest key.
//
// # Overview
//
// The package exports two main entry points:
//
//   - Canonicalize: converts any supported value into a value composed only
//     of nil, bool, int64, uint64, float64, string, []any, and
//     map[string]any
//   - Digest: encodes the canonical form deterministically and hashes it
//     into a fixed-length DigestKey suitable for addressing cache entries
//
// Both are also available as methods on Encoder, which owns the type rule
// registry and an optional converter tier.
//
// # Canonicalization Strategy
//
// Values are reduced in a fixed priority order:
//
//   - Registered concrete types: byte slices, time values, durations,
//     calendar dates, fixed-point decimals, IP addresses, regular
//     expression patterns, UUIDs, and URLs map directly to scalars
//   - Values implementing Mapper: converted through their mapping view
//   - Values implementing json.Marshaler or encoding.TextMarshaler
//   - Named scalar types (including enum-style constants): reduced to
//     their underlying scalar
//   - Maps: recursed with text keys, sorted on encoding
//   - Slices, arrays, and iterator functions: recursed in iteration order
//   - Structs: exported fields become a mapping of field name to value
//
// Values that survive none of these paths produce a SerializationError
// carrying every underlying conversion failure.
//
// # Determinism
//
// Two structurally equal values always canonicalize to structurally
// identical forms regardless of their concrete type: a slice, an array,
// and an iterator yielding the same elements in the same order are
// indistinguishable after canonicalization, as are two maps built in
// different insertion orders. Unordered collections modeled as maps keep
// no iteration order by construction; sets flattened by callers before
// canonicalization keep whatever order the caller produced.
//
// # Digest Format
//
// The digest key is a single format version byte followed by an MD5 digest
// of the canonical encoding truncated by one byte, 16 bytes total. The
// canonical encoding sorts mapping keys lexicographically, uses compact
// separators with no insignificant whitespace, and preserves non-ASCII
// characters literally. Identical canonical forms always produce identical
// keys; a future format revision changes the version byte so keys from
// different formats never alias each other.
package canonical
