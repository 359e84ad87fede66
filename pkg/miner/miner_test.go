package miner

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icoKeypair() (ed25519.PublicKey, ed25519.PrivateKey) {
	priv := ed25519.NewKeyFromSeed(state.ICOSeed[:])
	return priv.Public().(ed25519.PublicKey), priv
}

func newTestMiner() (*Miner, *chain.Blockchain, *mempool.Mempool, *state.SnapshotMap) {
	bc := chain.New()
	mp := mempool.New()
	snaps := state.NewSnapshotMap(block.NewGenesisBlock().Hash())
	return New(bc, mp, snaps), bc, mp, snaps
}

func TestMineOnceDoesNothingWithEmptyMempool(t *testing.T) {
	m, bc, _, _ := newTestMiner()
	m.mineOnce()
	assert.Equal(t, uint64(0), bc.Longest())
}

func TestMineOnceMinesBlockFromMempool(t *testing.T) {
	m, bc, mp, snaps := newTestMiner()

	pub, priv := icoKeypair()
	tx := block.Transaction{
		Inputs:  []block.TxIn{{PreviousOutput: types.ZeroHash, Index: 0}},
		Outputs: []block.TxOut{{Recipient: types.AddressFromPublicKey(pub), Value: 500}},
	}
	stx := *block.Sign(tx, priv)
	require.True(t, mp.Insert(stx))

	var minedHash types.H256
	select {
	case minedHash = <-drainAfterMining(m):
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a mined block")
	}

	assert.Equal(t, minedHash, bc.Tip())
	assert.Equal(t, uint64(1), bc.Longest())

	snap, ok := snaps.Get(minedHash)
	require.True(t, ok)
	_, icoStillSpendable := snap.Get(block.Outpoint{Hash: types.ZeroHash, Index: 0})
	assert.False(t, icoStillSpendable, "the ICO UTXO must be consumed by the mined block")

	assert.False(t, mp.Contains(stx.Hash()), "mined transaction must be removed from the mempool")
}

// drainAfterMining repeatedly mines until a block is produced (the PoW
// search is probabilistic: under the genesis difficulty a single call to
// mineOnce succeeds with odds of about 1 in 11,000, so the loop allows
// enough attempts that giving up is vanishingly unlikely).
func drainAfterMining(m *Miner) <-chan types.H256 {
	out := make(chan types.H256, 1)
	go func() {
		for i := 0; i < 200000; i++ {
			m.mineOnce()
			select {
			case h := <-m.Finished():
				out <- h
				return
			default:
			}
		}
	}()
	return out
}

func TestMinedTransactionCannotBeRevivedInMempool(t *testing.T) {
	m, _, mp, _ := newTestMiner()

	pub, priv := icoKeypair()
	tx1 := block.Transaction{
		Inputs:  []block.TxIn{{PreviousOutput: types.ZeroHash, Index: 0}},
		Outputs: []block.TxOut{{Recipient: types.AddressFromPublicKey(pub), Value: 500}},
	}
	stx1 := *block.Sign(tx1, priv)
	require.True(t, mp.Insert(stx1))

	select {
	case <-drainAfterMining(m):
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a mined block")
	}

	assert.False(t, mp.Insert(stx1), "a mined transaction must never be re-admitted by its hash")
}
