package block

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gochain/utxonode/pkg/merkle"
	"github.com/gochain/utxonode/pkg/types"
)

// Content is the body of a block: its ordered signed transactions.
type Content struct {
	Transactions []SignedTransaction
}

// Block is a header plus the content it commits to via MerkleRoot.
type Block struct {
	Header  Header
	Content Content
}

// GenesisDifficulty is the fixed genesis proof-of-work target:
// 00 05 FF 00 followed by 28 zero bytes, big-endian. A block is valid iff
// its header hash is <= this value (or the value inherited from an
// ancestor, per §9's "difficulty is read from the parent" design note).
var GenesisDifficulty = types.H256{0x00, 0x05, 0xff, 0x00}

// NewGenesisBlock constructs the fixed genesis block: zero parent, zero
// nonce, zero timestamp, the fixed genesis difficulty, and an empty
// transaction list with an all-zero merkle root.
func NewGenesisBlock() *Block {
	return &Block{
		Header: Header{
			Parent:     types.ZeroHash,
			Nonce:      0,
			Difficulty: GenesisDifficulty,
			Timestamp:  0,
			MerkleRoot: types.ZeroHash,
		},
		Content: Content{Transactions: nil},
	}
}

// CalculateMerkleRoot computes the merkle root over this block's
// transactions, in order.
func (b *Block) CalculateMerkleRoot() types.H256 {
	leaves := make([]types.H256, len(b.Content.Transactions))
	for i := range b.Content.Transactions {
		leaves[i] = b.Content.Transactions[i].Hash()
	}
	return merkle.Build(leaves).Root()
}

// Hash returns the block hash: SHA-256 of the serialized header.
func (b *Block) Hash() types.H256 {
	return b.Header.Hash()
}

// MeetsDifficulty checks the proof-of-work predicate against an explicit
// target (the parent's difficulty, per spec §4.7/§9 — difficulty is not
// read from the block's own header during validation).
func (b *Block) MeetsDifficulty(target types.H256) bool {
	return b.Hash().LessOrEqual(target)
}

func (b *Block) String() string {
	h := b.Hash()
	return fmt.Sprintf("Block{%s, txs=%d}", h.Hex()[:12], len(b.Content.Transactions))
}

// Serialize writes the full wire encoding of the block: its header
// followed by its length-prefixed transaction list. This is the
// encoding gossip peers exchange; it is distinct from the header-only
// bytes hashed by Hash().
func (b *Block) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(b.Header.Serialize())

	writeUint32(&buf, uint32(len(b.Content.Transactions)))
	for i := range b.Content.Transactions {
		buf.Write(b.Content.Transactions[i].Serialize())
	}
	return buf.Bytes()
}

// DecodeBlock reads a Block from its wire encoding, as written by
// Serialize.
func DecodeBlock(r io.Reader) (*Block, error) {
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}

	numTx, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	txs := make([]SignedTransaction, numTx)
	for i := range txs {
		stx, err := DecodeSignedTransaction(r)
		if err != nil {
			return nil, err
		}
		txs[i] = stx
	}

	return &Block{Header: header, Content: Content{Transactions: txs}}, nil
}
