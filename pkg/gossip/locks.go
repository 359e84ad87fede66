package gossip

import (
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
)

// Acquiring the chain, mempool, orphan buffer, and snapshot map locks
// together is the operation this package performs most: block
// admission. The guard chain below makes the acquisition order
// impossible to get wrong by construction — each stage's Lock method is
// only reachable from the previous stage's guard, so a caller can never
// compile code that takes OrphanBuffer before Mempool, for instance.
//
// The specified order is Blockchain → Mempool → State → OrphanBuffer →
// BlockToStateMap. This implementation models State as immutable
// snapshots living entirely inside BlockToStateMap (pkg/state.State is
// never mutated in place; every update produces a new layered value) —
// there is no separate mutable "current state" object to lock. The two
// named stages therefore collapse onto one real mutex, and the guard
// chain below reduces to Chain → Mempool → Orphan → Snapshots, a
// subsequence of the original order that preserves its acyclicity.

// ChainGuard holds the blockchain lock.
type ChainGuard struct {
	bc *chain.Blockchain
}

// AcquireChain is the entry point into the lockset: it takes the first
// lock in the fixed order.
func AcquireChain(bc *chain.Blockchain) ChainGuard {
	bc.Lock()
	return ChainGuard{bc: bc}
}

// Chain returns the locked blockchain.
func (g ChainGuard) Chain() *chain.Blockchain { return g.bc }

// Mempool acquires the mempool lock, the next stage in the order.
func (g ChainGuard) Mempool(mp *mempool.Mempool) MempoolGuard {
	mp.Lock()
	return MempoolGuard{prev: g, mp: mp}
}

// Release releases the chain lock.
func (g ChainGuard) Release() { g.bc.Unlock() }

// MempoolGuard holds the chain and mempool locks.
type MempoolGuard struct {
	prev ChainGuard
	mp   *mempool.Mempool
}

// Mempool returns the locked mempool.
func (g MempoolGuard) Mempool() *mempool.Mempool { return g.mp }

// Chain returns the locked blockchain, inherited from the prior stage.
func (g MempoolGuard) Chain() *chain.Blockchain { return g.prev.Chain() }

// Orphan acquires the orphan buffer lock, the next stage in the order.
func (g MempoolGuard) Orphan(ob *OrphanBuffer) OrphanGuard {
	ob.Lock()
	return OrphanGuard{prev: g, ob: ob}
}

// Release releases the mempool lock, then the chain lock beneath it.
func (g MempoolGuard) Release() {
	g.mp.Unlock()
	g.prev.Release()
}

// OrphanGuard holds the chain, mempool, and orphan buffer locks.
type OrphanGuard struct {
	prev MempoolGuard
	ob   *OrphanBuffer
}

// Chain returns the locked blockchain.
func (g OrphanGuard) Chain() *chain.Blockchain { return g.prev.Chain() }

// Mempool returns the locked mempool.
func (g OrphanGuard) Mempool() *mempool.Mempool { return g.prev.Mempool() }

// Orphan returns the locked orphan buffer.
func (g OrphanGuard) Orphan() *OrphanBuffer { return g.ob }

// Snapshots acquires the block-to-state snapshot map lock, the final
// stage in the order.
func (g OrphanGuard) Snapshots(snaps *state.SnapshotMap) SnapshotGuard {
	snaps.Lock()
	return SnapshotGuard{prev: g, snaps: snaps}
}

// Release releases the orphan buffer lock, then the stages beneath it.
func (g OrphanGuard) Release() {
	g.ob.Unlock()
	g.prev.Release()
}

// SnapshotGuard holds all four locks in the fixed order. Its Release
// unwinds them in the reverse order they were acquired.
type SnapshotGuard struct {
	prev  OrphanGuard
	snaps *state.SnapshotMap
}

// Chain returns the locked blockchain.
func (g SnapshotGuard) Chain() *chain.Blockchain { return g.prev.Chain() }

// Mempool returns the locked mempool.
func (g SnapshotGuard) Mempool() *mempool.Mempool { return g.prev.Mempool() }

// Orphan returns the locked orphan buffer.
func (g SnapshotGuard) Orphan() *OrphanBuffer { return g.prev.Orphan() }

// Snapshots returns the locked snapshot map.
func (g SnapshotGuard) Snapshots() *state.SnapshotMap { return g.snaps }

// Release releases all four locks, in reverse acquisition order.
func (g SnapshotGuard) Release() {
	g.snaps.Unlock()
	g.prev.Release()
}
