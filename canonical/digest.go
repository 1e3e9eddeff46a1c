package canonical

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// DigestVersion is the current digest format version. It is embedded as
// the first byte of every DigestKey so keys produced by different formats
// never alias each other.
const DigestVersion byte = 0x00

// DigestSize is the length of a DigestKey in bytes: one version byte plus
// the digest truncated by one byte.
const DigestSize = 16

// DigestKey addresses a stored cache entry. It is a fixed-length byte
// sequence derived from the canonical encoding of a value.
type DigestKey [DigestSize]byte

// Hex returns the lowercase hex form of the key, 32 characters.
func (k DigestKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// String implements fmt.Stringer.
func (k DigestKey) String() string {
	return k.Hex()
}

// Version returns the embedded format version byte.
func (k DigestKey) Version() byte {
	return k[0]
}

// ParseDigestKey decodes the hex form produced by Hex.
func ParseDigestKey(s string) (DigestKey, error) {
	var k DigestKey
	raw, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("canonical: invalid digest key %q: %w", s, err)
	}
	if len(raw) != DigestSize {
		return k, fmt.Errorf("canonical: invalid digest key length %d, want %d", len(raw), DigestSize)
	}
	copy(k[:], raw)
	return k, nil
}

// Digest reduces v to canonical form, encodes it deterministically, and
// condenses the encoding into a DigestKey. A serialization failure
// propagates unchanged.
func (e *Encoder) Digest(v any) (DigestKey, error) {
	raw, err := e.MarshalCanonical(v)
	if err != nil {
		return DigestKey{}, err
	}
	sum := md5.Sum(raw)

	var k DigestKey
	k[0] = DigestVersion
	copy(k[1:], sum[:DigestSize-1])
	return k, nil
}

// Digest condenses v into a DigestKey using the default encoder.
func Digest(v any) (DigestKey, error) {
	return defaultEncoder.Digest(v)
}
