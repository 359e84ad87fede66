package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/gochain/utxonode/pkg/types"
)

// Header is a block header: everything the proof-of-work hash covers.
type Header struct {
	Parent     types.H256
	Nonce      uint32
	Difficulty types.H256
	Timestamp  uint64 // milliseconds since epoch
	MerkleRoot types.H256
}

// Serialize writes the canonical wire encoding of the header.
func (h *Header) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(h.Parent[:])

	var nonceBytes [4]byte
	binary.BigEndian.PutUint32(nonceBytes[:], h.Nonce)
	buf.Write(nonceBytes[:])

	buf.Write(h.Difficulty[:])

	var tsBytes [8]byte
	binary.BigEndian.PutUint64(tsBytes[:], h.Timestamp)
	buf.Write(tsBytes[:])

	buf.Write(h.MerkleRoot[:])
	return buf.Bytes()
}

// Hash returns the SHA-256 of the header's canonical serialization — the
// block hash.
func (h *Header) Hash() types.H256 {
	sum := sha256.Sum256(h.Serialize())
	return types.H256(sum)
}

// MeetsDifficulty reports whether this header's hash satisfies the
// proof-of-work predicate against its own difficulty target.
func (h *Header) MeetsDifficulty() bool {
	return h.Hash().LessOrEqual(h.Difficulty)
}

// DecodeHeader reads a Header from its canonical wire encoding, as
// written by Serialize.
func DecodeHeader(r io.Reader) (Header, error) {
	var h Header

	if _, err := io.ReadFull(r, h.Parent[:]); err != nil {
		return h, err
	}

	var nonceBytes [4]byte
	if _, err := io.ReadFull(r, nonceBytes[:]); err != nil {
		return h, err
	}
	h.Nonce = binary.BigEndian.Uint32(nonceBytes[:])

	if _, err := io.ReadFull(r, h.Difficulty[:]); err != nil {
		return h, err
	}

	var tsBytes [8]byte
	if _, err := io.ReadFull(r, tsBytes[:]); err != nil {
		return h, err
	}
	h.Timestamp = binary.BigEndian.Uint64(tsBytes[:])

	if _, err := io.ReadFull(r, h.MerkleRoot[:]); err != nil {
		return h, err
	}

	return h, nil
}
