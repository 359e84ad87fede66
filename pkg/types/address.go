package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AddressSize is the length in bytes of a node address.
const AddressSize = 20

// Address is a 20-byte account identifier, derived as the last 20 bytes
// of SHA-256(public key).
type Address [AddressSize]byte

// AddressFromPublicKey derives the address owning an Ed25519 public key:
// the last 20 bytes of SHA-256(pubkey).
func AddressFromPublicKey(pub []byte) Address {
	sum := sha256.Sum256(pub)
	var a Address
	copy(a[:], sum[len(sum)-AddressSize:])
	return a
}

// Bytes returns a copy of the address's bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

// Hex returns the lowercase 40-character hex encoding of the address.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// AddressFromHex parses a 40-character hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("invalid address length: got %d bytes, want %d", len(b), AddressSize)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
