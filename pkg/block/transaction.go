package block

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gochain/utxonode/pkg/types"
)

// TxIn references a previously produced output by its outpoint: the hash
// of the transaction that produced it and the output's index within that
// transaction.
type TxIn struct {
	PreviousOutput types.H256
	Index          uint8
}

// TxOut pays a value to a recipient address.
type TxOut struct {
	Recipient types.Address
	Value     uint64
}

// Outpoint identifies a single transaction output.
type Outpoint struct {
	Hash  types.H256
	Index uint8
}

// Outpoint returns the outpoint this input spends.
func (in TxIn) Outpoint() Outpoint {
	return Outpoint{Hash: in.PreviousOutput, Index: in.Index}
}

// Transaction is an ordered list of inputs and outputs. Its hash is the
// SHA-256 of its canonical binary serialization; that serialization must
// be bit-identical across every implementation on the wire.
type Transaction struct {
	Inputs  []TxIn
	Outputs []TxOut
}

// Serialize writes the canonical wire encoding of the transaction.
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf.Write(in.PreviousOutput[:])
		buf.WriteByte(in.Index)
	}

	writeUint32(&buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf.Write(out.Recipient[:])
		writeUint64(&buf, out.Value)
	}

	return buf.Bytes()
}

// Hash returns the SHA-256 of the transaction's canonical serialization.
func (tx *Transaction) Hash() types.H256 {
	sum := sha256.Sum256(tx.Serialize())
	return types.H256(sum)
}

// DecodeTransaction reads a Transaction from its canonical wire
// encoding, as written by Serialize.
func DecodeTransaction(r io.Reader) (Transaction, error) {
	var tx Transaction

	numIn, err := readUint32(r)
	if err != nil {
		return tx, err
	}
	tx.Inputs = make([]TxIn, numIn)
	for i := range tx.Inputs {
		var prev types.H256
		if _, err := io.ReadFull(r, prev[:]); err != nil {
			return tx, err
		}
		var idx [1]byte
		if _, err := io.ReadFull(r, idx[:]); err != nil {
			return tx, err
		}
		tx.Inputs[i] = TxIn{PreviousOutput: prev, Index: idx[0]}
	}

	numOut, err := readUint32(r)
	if err != nil {
		return tx, err
	}
	tx.Outputs = make([]TxOut, numOut)
	for i := range tx.Outputs {
		var recipient types.Address
		if _, err := io.ReadFull(r, recipient[:]); err != nil {
			return tx, err
		}
		value, err := readUint64(r)
		if err != nil {
			return tx, err
		}
		tx.Outputs[i] = TxOut{Recipient: recipient, Value: value}
	}

	return tx, nil
}

// SignedTransaction bundles a transaction with the public key and
// signature that authorize spending its inputs. Its own hash (used for
// mempool/gossip identity) is the SHA-256 of its own serialization, and
// is distinct from the hash of the inner transaction.
type SignedTransaction struct {
	Transaction Transaction
	PublicKey   []byte // ed25519.PublicKey, 32 bytes
	Signature   []byte // ed25519 signature, 64 bytes
}

// Serialize writes the canonical wire encoding of the signed transaction.
func (stx *SignedTransaction) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(stx.Transaction.Serialize())
	writeUint32(&buf, uint32(len(stx.PublicKey)))
	buf.Write(stx.PublicKey)
	writeUint32(&buf, uint32(len(stx.Signature)))
	buf.Write(stx.Signature)
	return buf.Bytes()
}

// Hash returns the SHA-256 of the signed transaction's own serialization.
func (stx *SignedTransaction) Hash() types.H256 {
	sum := sha256.Sum256(stx.Serialize())
	return types.H256(sum)
}

// DecodeSignedTransaction reads a SignedTransaction from its canonical
// wire encoding, as written by Serialize.
func DecodeSignedTransaction(r io.Reader) (SignedTransaction, error) {
	var stx SignedTransaction

	tx, err := DecodeTransaction(r)
	if err != nil {
		return stx, err
	}
	stx.Transaction = tx

	pubLen, err := readUint32(r)
	if err != nil {
		return stx, err
	}
	stx.PublicKey = make([]byte, pubLen)
	if _, err := io.ReadFull(r, stx.PublicKey); err != nil {
		return stx, err
	}

	sigLen, err := readUint32(r)
	if err != nil {
		return stx, err
	}
	stx.Signature = make([]byte, sigLen)
	if _, err := io.ReadFull(r, stx.Signature); err != nil {
		return stx, err
	}

	return stx, nil
}

// SigningDigest returns the message actually signed: SHA-256 of the
// inner transaction's serialization.
func (stx *SignedTransaction) SigningDigest() []byte {
	digest := stx.Transaction.Hash()
	return digest[:]
}

// VerifySignature checks the Ed25519 signature over SigningDigest().
func (stx *SignedTransaction) VerifySignature() bool {
	if len(stx.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	if len(stx.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(stx.PublicKey), stx.SigningDigest(), stx.Signature)
}

// Signer derives the address that must own every input this transaction
// spends: the last 20 bytes of SHA-256(public key).
func (stx *SignedTransaction) Signer() types.Address {
	return types.AddressFromPublicKey(stx.PublicKey)
}

// Sign produces a SignedTransaction authorizing tx with the given Ed25519
// keypair.
func Sign(tx Transaction, priv ed25519.PrivateKey) *SignedTransaction {
	digest := tx.Hash()
	sig := ed25519.Sign(priv, digest[:])
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, priv.Public().(ed25519.PublicKey))
	return &SignedTransaction{
		Transaction: tx,
		PublicKey:   pub,
		Signature:   sig,
	}
}

// DistinctInputs reports whether every input outpoint in the transaction
// is pairwise distinct — required both for mempool admission and for
// any single tx to be internally double-spend free.
func (tx *Transaction) DistinctInputs() bool {
	seen := make(map[Outpoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		op := in.Outpoint()
		if _, ok := seen[op]; ok {
			return false
		}
		seen[op] = struct{}{}
	}
	return true
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// String returns a short human-readable summary of the transaction.
func (tx *Transaction) String() string {
	h := tx.Hash()
	return fmt.Sprintf("Tx{%s, in=%d, out=%d}", h.Hex()[:12], len(tx.Inputs), len(tx.Outputs))
}
