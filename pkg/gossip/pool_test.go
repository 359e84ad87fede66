package gossip

import (
	"testing"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPeer struct {
	id   string
	sent [][]byte
}

func (p *stubPeer) ID() string { return p.id }
func (p *stubPeer) Send(msg []byte) error {
	p.sent = append(p.sent, msg)
	return nil
}

type stubBroadcaster struct {
	sent [][]byte
}

func (b *stubBroadcaster) Broadcast(msg []byte) error {
	b.sent = append(b.sent, msg)
	return nil
}

func newTestPool() (*Pool, *chain.Blockchain, *mempool.Mempool, *state.SnapshotMap, *OrphanBuffer, *stubBroadcaster) {
	bc := chain.New()
	mp := mempool.New()
	snaps := state.NewSnapshotMap(block.NewGenesisBlock().Hash())
	orphans := NewOrphanBuffer()
	bcast := &stubBroadcaster{}
	inbound := make(chan Envelope)
	pool := NewPool(bc, mp, snaps, orphans, inbound, bcast, 1)
	return pool, bc, mp, snaps, orphans, bcast
}

// childBlock mines a nonce satisfying the parent's (fixed) difficulty
// target so the admission algorithm's PoW check actually passes — under
// the genesis difficulty this takes about 11,000 tries on average.
func childBlock(t *testing.T, parent *block.Block, seed uint32) *block.Block {
	t.Helper()
	for nonce := seed; ; nonce++ {
		b := &block.Block{Header: block.Header{
			Parent:     parent.Hash(),
			Nonce:      nonce,
			Difficulty: block.GenesisDifficulty,
			Timestamp:  uint64(nonce),
			MerkleRoot: parent.Header.MerkleRoot,
		}}
		if b.MeetsDifficulty(parent.Header.Difficulty) {
			return b
		}
	}
}

func TestHandleBlocksAdmitsDirectChild(t *testing.T) {
	pool, bc, _, snaps, _, bcast := newTestPool()
	genesis := block.NewGenesisBlock()
	b1 := childBlock(t, genesis, 1)

	pool.handleBlocks([]*block.Block{b1})

	assert.True(t, bc.Contains(b1.Hash()))
	assert.Equal(t, b1.Hash(), bc.Tip())
	_, ok := snaps.Get(b1.Hash())
	assert.True(t, ok)
	require.NotEmpty(t, bcast.sent)
}

func TestHandleBlocksBuffersOrphanAndRequestsParent(t *testing.T) {
	pool, bc, _, _, orphans, bcast := newTestPool()
	genesis := block.NewGenesisBlock()
	b1 := childBlock(t, genesis, 1)
	b2 := childBlock(t, b1, 1000) // b1 not yet known — b2 is an orphan

	pool.handleBlocks([]*block.Block{b2})

	assert.False(t, bc.Contains(b2.Hash()))
	assert.Equal(t, 1, orphans.Len())
	require.NotEmpty(t, bcast.sent)

	msg, err := Decode(bcast.sent[0])
	require.NoError(t, err)
	assert.Equal(t, KindGetBlocks, msg.Kind)
	assert.Contains(t, msg.Hashes, b1.Hash())
}

func TestHandleBlocksFlushesOrphansBreadthFirst(t *testing.T) {
	pool, bc, _, _, orphans, _ := newTestPool()
	genesis := block.NewGenesisBlock()
	b1 := childBlock(t, genesis, 1)
	b2 := childBlock(t, b1, 1000)
	b3 := childBlock(t, b2, 2000)

	// deliver B3, B2, B1 in reverse order, per the spec's orphan
	// reassembly scenario
	pool.handleBlocks([]*block.Block{b3})
	pool.handleBlocks([]*block.Block{b2})
	assert.Equal(t, 2, orphans.Len())

	pool.handleBlocks([]*block.Block{b1})

	assert.Equal(t, 0, orphans.Len())
	assert.True(t, bc.Contains(b1.Hash()))
	assert.True(t, bc.Contains(b2.Hash()))
	assert.True(t, bc.Contains(b3.Hash()))
	assert.Equal(t, b3.Hash(), bc.Tip())
	assert.Equal(t, uint64(3), bc.Longest())
}

func TestHandleBlocksSkipsAlreadyAdmittedBlock(t *testing.T) {
	pool, bc, _, _, _, bcast := newTestPool()
	genesis := block.NewGenesisBlock()
	b1 := childBlock(t, genesis, 1)

	pool.handleBlocks([]*block.Block{b1})
	bcast.sent = nil

	pool.handleBlocks([]*block.Block{b1})
	assert.Empty(t, bcast.sent, "re-delivering an admitted block must not re-broadcast")
	assert.Equal(t, b1.Hash(), bc.Tip())
}

func TestHandlePingRepliesPong(t *testing.T) {
	pool, _, _, _, _, _ := newTestPool()
	peer := &stubPeer{id: "peer-1"}

	pool.handle(Envelope{Payload: Ping(9).Encode(), From: peer})

	require.Len(t, peer.sent, 1)
	msg, err := Decode(peer.sent[0])
	require.NoError(t, err)
	assert.Equal(t, KindPong, msg.Kind)
	assert.Equal(t, uint64(9), msg.Nonce)
}
