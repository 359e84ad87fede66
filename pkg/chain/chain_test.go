package chain

import (
	"testing"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChainHasGenesisTip(t *testing.T) {
	bc := New()
	g := block.NewGenesisBlock()

	assert.Equal(t, g.Hash(), bc.Tip())
	assert.Equal(t, uint64(0), bc.Longest())

	chainHashes := bc.AllBlocksInLongestChain()
	require.Len(t, chainHashes, 1)
	assert.Equal(t, g.Hash(), chainHashes[0])
}

func childOf(parentHash [32]byte, nonce uint32) *block.Block {
	g := block.NewGenesisBlock()
	h := block.Header{
		Parent:     parentHash,
		Nonce:      nonce,
		Difficulty: block.GenesisDifficulty,
		Timestamp:  uint64(nonce),
		MerkleRoot: g.Header.MerkleRoot,
	}
	return &block.Block{Header: h}
}

func TestInsertAdvancesTipOnStrictHeightIncrease(t *testing.T) {
	bc := New()
	genesis := block.NewGenesisBlock()

	child := childOf(genesis.Hash(), 1)
	h, err := bc.Insert(child)
	require.NoError(t, err)

	assert.Equal(t, h, bc.Tip())
	assert.Equal(t, uint64(1), bc.Longest())

	height, ok := bc.Height(h)
	require.True(t, ok)
	assert.Equal(t, uint64(1), height)
}

func TestInsertUnknownParentFails(t *testing.T) {
	bc := New()
	orphan := childOf([32]byte{0xff}, 7)

	_, err := bc.Insert(orphan)
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestInsertTieDoesNotSwapTip(t *testing.T) {
	bc := New()
	genesis := block.NewGenesisBlock()

	first, err := bc.Insert(childOf(genesis.Hash(), 1))
	require.NoError(t, err)

	// second child at the same height, distinguished by nonce/timestamp
	second := childOf(genesis.Hash(), 2)
	_, err = bc.Insert(second)
	require.NoError(t, err)

	assert.Equal(t, first, bc.Tip(), "first-inserted block at a height must keep the tip on a tie")
	assert.Equal(t, uint64(1), bc.Longest())
}

func TestAllBlocksInLongestChainOrdersGenesisFirst(t *testing.T) {
	bc := New()
	genesis := block.NewGenesisBlock()

	child1 := childOf(genesis.Hash(), 1)
	h1, err := bc.Insert(child1)
	require.NoError(t, err)

	child2 := &block.Block{Header: block.Header{
		Parent:     h1,
		Nonce:      2,
		Difficulty: block.GenesisDifficulty,
		Timestamp:  2,
		MerkleRoot: genesis.Header.MerkleRoot,
	}}
	h2, err := bc.Insert(child2)
	require.NoError(t, err)

	chainHashes := bc.AllBlocksInLongestChain()
	require.Len(t, chainHashes, 3)
	assert.Equal(t, genesis.Hash(), chainHashes[0])
	assert.Equal(t, h1, chainHashes[1])
	assert.Equal(t, h2, chainHashes[2])
}
