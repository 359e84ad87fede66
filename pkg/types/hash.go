// Package types holds the primitive value types shared across the node:
// 32-byte content hashes and 20-byte addresses.
package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// H256Size is the length in bytes of a content hash.
const H256Size = 32

// H256 is a 32-byte hash, ordered as a big-endian unsigned integer for
// difficulty comparisons.
type H256 [H256Size]byte

// ZeroHash is the all-zero hash used for the genesis parent and empty
// merkle roots.
var ZeroHash H256

// BytesToHash copies up to 32 bytes of b into a new H256, left-padding
// with zeros if b is shorter.
func BytesToHash(b []byte) H256 {
	var h H256
	if len(b) > H256Size {
		b = b[len(b)-H256Size:]
	}
	copy(h[H256Size-len(b):], b)
	return h
}

// Bytes returns a copy of the hash's bytes.
func (h H256) Bytes() []byte {
	out := make([]byte, H256Size)
	copy(out, h[:])
	return out
}

// Hex returns the lowercase 64-character hex encoding of the hash.
func (h H256) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h H256) String() string {
	return h.Hex()
}

// IsZero reports whether h is the all-zero hash.
func (h H256) IsZero() bool {
	return h == ZeroHash
}

// Cmp compares two hashes as big-endian 256-bit unsigned integers,
// returning -1, 0 or 1.
func (h H256) Cmp(other H256) int {
	return bytes.Compare(h[:], other[:])
}

// LessOrEqual reports whether h <= target under big-endian unsigned
// comparison — the proof-of-work predicate.
func (h H256) LessOrEqual(target H256) bool {
	return h.Cmp(target) <= 0
}

// HashFromHex parses a 64-character hex string into an H256.
func HashFromHex(s string) (H256, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return H256{}, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != H256Size {
		return H256{}, fmt.Errorf("invalid hash length: got %d bytes, want %d", len(b), H256Size)
	}
	var h H256
	copy(h[:], b)
	return h, nil
}
