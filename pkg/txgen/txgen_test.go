package txgen

import (
	"crypto/ed25519"
	"math/rand"
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

type stubBroadcaster struct {
	sent [][]byte
}

func (b *stubBroadcaster) Broadcast(msg []byte) error {
	b.sent = append(b.sent, msg)
	return nil
}

func TestKeyringIsDeterministicAndIndex0MatchesICOSeed(t *testing.T) {
	a := Keyring()
	b := Keyring()
	require.Len(t, a, keyringSize)
	for i := range a {
		assert.Equal(t, a[i].Address, b[i].Address, "keyring derivation must be deterministic")
	}

	icoPriv := ed25519.NewKeyFromSeed(state.ICOSeed[:])
	assert.Equal(t, icoPriv.Public(), a[0].Public, "participant 0's key must match the ICO recipient's key")
	assert.Equal(t, state.ICORecipient(), a[0].Address)
}

func newTestGenerator() (*Generator, *chain.Blockchain, *mempool.Mempool, *state.SnapshotMap, *stubBroadcaster) {
	bc := chain.New()
	mp := mempool.New()
	genesisHash := block.NewGenesisBlock().Hash()
	snaps := state.NewSnapshotMap(genesisHash)
	snaps.Set(genesisHash, state.New())
	bcast := &stubBroadcaster{}
	return New(bc, mp, snaps, bcast), bc, mp, snaps, bcast
}

func TestNewGeneratorBuildsAddressIndex(t *testing.T) {
	g, _, _, _, _ := newTestGenerator()
	require.Len(t, g.byAddress, keyringSize)
	for _, kp := range g.keyring {
		priv, ok := g.byAddress[kp.Address]
		require.True(t, ok)
		assert.Equal(t, kp.Private, priv)
	}
}

func TestStepOnceProducesSpendableCandidateFromGenesisState(t *testing.T) {
	g, _, _, _, _ := newTestGenerator()

	g.stepOnce()

	select {
	case stx := <-g.candidates:
		require.NotEmpty(t, stx.Transaction.Outputs)
		assert.True(t, stx.VerifySignature())

		var total uint64
		for _, out := range stx.Transaction.Outputs {
			total += out.Value
		}
		assert.LessOrEqual(t, total, uint64(state.ICOValue))
	default:
		t.Fatal("expected a candidate transaction to be produced from the seeded ICO UTXO")
	}
}

func TestStepOnceSkipsAlreadyEvidencedSpend(t *testing.T) {
	g, _, mp, _, _ := newTestGenerator()
	g.rng = rand.New(rand.NewSource(7))

	g.stepOnce()
	require.Len(t, g.candidates, 1)
	first := <-g.candidates
	require.True(t, mp.Insert(first))

	g.rng = rand.New(rand.NewSource(7))
	g.stepOnce()
	assert.Empty(t, g.candidates, "a spend that produces an already-evidenced transaction must not be re-queued once admitted")
}

func TestRunWorkerInsertsAndBroadcastsAdmittedCandidates(t *testing.T) {
	g, _, mp, _, bcast := newTestGenerator()
	go g.RunWorker()

	priv := g.keyring[0].Private
	tx := block.Transaction{
		Inputs:  []block.TxIn{{PreviousOutput: types.ZeroHash, Index: 0}},
		Outputs: []block.TxOut{{Recipient: g.keyring[1].Address, Value: 10}},
	}
	stx := *block.Sign(tx, priv)
	g.candidates <- stx
	close(g.candidates)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mp.Contains(stx.Hash()) && len(bcast.sent) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for the worker to admit and broadcast the candidate")
}
