package gossip

import (
	"crypto/ed25519"
	"testing"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingPongRoundTrip(t *testing.T) {
	encoded := Ping(42).Encode()
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, KindPing, decoded.Kind)
	assert.Equal(t, uint64(42), decoded.Nonce)
}

func TestHashListMessagesRoundTrip(t *testing.T) {
	hashes := []types.H256{types.BytesToHash([]byte("a")), types.BytesToHash([]byte("b"))}

	for _, m := range []Message{
		NewBlockHashes(hashes),
		GetBlocks(hashes),
		NewTransactionHashes(hashes),
		GetTransactions(hashes),
	} {
		decoded, err := Decode(m.Encode())
		require.NoError(t, err)
		assert.Equal(t, m.Kind, decoded.Kind)
		assert.Equal(t, hashes, decoded.Hashes)
	}
}

func TestBlocksMessageRoundTrip(t *testing.T) {
	g := block.NewGenesisBlock()
	m := Blocks([]*block.Block{g})

	decoded, err := Decode(m.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Blocks, 1)
	assert.Equal(t, g.Hash(), decoded.Blocks[0].Hash())
}

func TestTransactionsMessageRoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := block.Transaction{
		Inputs:  []block.TxIn{{PreviousOutput: types.ZeroHash, Index: 0}},
		Outputs: []block.TxOut{{Value: 7}},
	}
	stx := *block.Sign(tx, priv)

	m := Transactions([]block.SignedTransaction{stx})
	decoded, err := Decode(m.Encode())
	require.NoError(t, err)
	require.Len(t, decoded.Transactions, 1)
	assert.Equal(t, stx.Hash(), decoded.Transactions[0].Hash())
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte{0xff})
	assert.Error(t, err)
}
