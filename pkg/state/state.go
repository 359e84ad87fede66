// Package state implements the UTXO set and its per-block snapshots.
//
// A State is a persistent (immutable) value: Apply never mutates its
// receiver, it returns a new layer that shares the rest of the chain
// with every other snapshot derived from the same ancestor. This gives
// BlockToStateMap structural sharing across the whole admitted chain
// instead of an O(|UTXO|) copy per block.
package state

import (
	"crypto/ed25519"
	"errors"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/types"
)

// ICOSeed is the fixed 32-byte Ed25519 seed (ASCII '0' repeated) used to
// derive the genesis ICO recipient, per the wire-format constants every
// implementation must agree on.
var ICOSeed = func() [ed25519.SeedSize]byte {
	var seed [ed25519.SeedSize]byte
	for i := range seed {
		seed[i] = '0'
	}
	return seed
}()

// ICOValue is the value of the single genesis UTXO.
const ICOValue = 100000

// ICORecipient returns the address that owns the ICO UTXO.
func ICORecipient() types.Address {
	priv := ed25519.NewKeyFromSeed(ICOSeed[:])
	pub := priv.Public().(ed25519.PublicKey)
	return types.AddressFromPublicKey(pub)
}

// Entry is a UTXO's value: the amount it carries and who owns it.
type Entry struct {
	Value     uint64
	Recipient types.Address
}

// State is an immutable UTXO set snapshot. The zero value is not valid;
// use New() or a value returned by Apply.
type State struct {
	parent  *State
	removed map[block.Outpoint]struct{}
	added   map[block.Outpoint]Entry
}

// New constructs the genesis state: a single ICO UTXO of ICOValue at
// outpoint (zero hash, 0), owned by ICORecipient().
func New() *State {
	ico := block.Outpoint{Hash: types.ZeroHash, Index: 0}
	return &State{
		added: map[block.Outpoint]Entry{
			ico: {Value: ICOValue, Recipient: ICORecipient()},
		},
	}
}

// Get looks up a UTXO, walking the layer chain from this snapshot back
// to the root.
func (s *State) Get(op block.Outpoint) (Entry, bool) {
	for layer := s; layer != nil; layer = layer.parent {
		if _, gone := layer.removed[op]; gone {
			return Entry{}, false
		}
		if e, ok := layer.added[op]; ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Snapshot flattens the layer chain into a single map of every UTXO
// currently visible from s. It walks every layer back to the root, so
// its cost grows with the length of the chain the snapshot descends
// from — acceptable for the transaction generator's sampling and the
// HTTP admin API's /state endpoint, neither of which is a hot path;
// bounding this is explicitly out of scope (no snapshotting to bounded
// memory).
func (s *State) Snapshot() map[block.Outpoint]Entry {
	result := make(map[block.Outpoint]Entry)
	tombstoned := make(map[block.Outpoint]struct{})

	for layer := s; layer != nil; layer = layer.parent {
		for op := range layer.removed {
			tombstoned[op] = struct{}{}
		}
		for op, e := range layer.added {
			if _, dead := tombstoned[op]; dead {
				continue
			}
			if _, have := result[op]; have {
				continue
			}
			result[op] = e
		}
	}
	return result
}

// Apply consumes the inputs and produces the outputs of stx, in order,
// returning a new snapshot layered on top of s. It performs no
// validation — callers must run Validate first.
func (s *State) Apply(stx *block.SignedTransaction) *State {
	next := &State{
		parent:  s,
		removed: make(map[block.Outpoint]struct{}, len(stx.Transaction.Inputs)),
		added:   make(map[block.Outpoint]Entry, len(stx.Transaction.Outputs)),
	}
	for _, in := range stx.Transaction.Inputs {
		next.removed[in.Outpoint()] = struct{}{}
	}
	h := stx.Hash()
	for i, out := range stx.Transaction.Outputs {
		op := block.Outpoint{Hash: h, Index: uint8(i)}
		next.added[op] = Entry{Value: out.Value, Recipient: out.Recipient}
	}
	return next
}

// Errors returned by Validate, named for the §4.5 rule they violate.
var (
	ErrBadSignature  = errors.New("state: invalid signature")
	ErrMissingInput  = errors.New("state: input outpoint not found")
	ErrNotOwner      = errors.New("state: signer does not own an input")
	ErrValueMismatch = errors.New("state: input value less than output value")
)

// Validate checks stx against s per the transaction-validity rules:
// signature, input existence, ownership, and that inputs cover outputs.
// It validates against a single snapshot — it does not account for
// other transactions being admitted in the same batch.
func Validate(s *State, stx *block.SignedTransaction) error {
	if !stx.VerifySignature() {
		return ErrBadSignature
	}

	signer := stx.Signer()
	var inputTotal uint64
	for _, in := range stx.Transaction.Inputs {
		entry, ok := s.Get(in.Outpoint())
		if !ok {
			return ErrMissingInput
		}
		if entry.Recipient != signer {
			return ErrNotOwner
		}
		inputTotal += entry.Value
	}

	var outputTotal uint64
	for _, out := range stx.Transaction.Outputs {
		outputTotal += out.Value
	}

	if inputTotal < outputTotal {
		return ErrValueMismatch
	}
	return nil
}
