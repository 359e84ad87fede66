// Package chain maintains the block tree and longest-chain selection.
package chain

import (
	"errors"
	"sync"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnknownParent is returned by Insert when the block's parent has not
// itself been admitted yet. Callers (the gossip worker pool) are
// responsible for routing such blocks through the orphan buffer instead
// of calling Insert directly.
var ErrUnknownParent = errors.New("chain: parent not present in block tree")

// Blockchain is the block tree: every admitted block keyed by hash, its
// height, and the current tip of the longest chain. It never rolls back
// or reorganizes state on a fork switch; the mempool is not restored when
// the tip moves to another branch.
type Blockchain struct {
	mu sync.RWMutex

	blocks  map[types.H256]*block.Block
	height  map[types.H256]uint64
	tip     types.H256
	longest uint64

	log zerolog.Logger
}

// New constructs a Blockchain seeded with the fixed genesis block.
func New() *Blockchain {
	genesis := block.NewGenesisBlock()
	genesisHash := genesis.Hash()

	bc := &Blockchain{
		blocks:  map[types.H256]*block.Block{genesisHash: genesis},
		height:  map[types.H256]uint64{genesisHash: 0},
		tip:     genesisHash,
		longest: 0,
		log:     log.With().Str("component", "chain").Logger(),
	}
	bc.log.Info().Str("genesis", genesisHash.Hex()).Msg("chain initialized")
	return bc
}

// Lock acquires the blockchain's exclusive lock. Callers that also need
// the mempool, state, orphan buffer, or snapshot map locks must acquire
// this one first, per the fixed Blockchain → Mempool → State →
// OrphanBuffer → BlockToStateMap order (see pkg/gossip/locks.go).
func (bc *Blockchain) Lock() { bc.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (bc *Blockchain) Unlock() { bc.mu.Unlock() }

// Insert admits a block whose parent is already known. It computes the
// block's height from its parent and swaps the tip only on a strict
// height increase — ties leave the existing tip in place, so the
// first-inserted block at a given height always wins.
func (bc *Blockchain) Insert(b *block.Block) (types.H256, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.InsertLocked(b)
}

// InsertLocked is Insert's body, for callers that already hold Lock as
// part of a wider multi-stage critical section.
func (bc *Blockchain) InsertLocked(b *block.Block) (types.H256, error) {
	h := b.Hash()
	if _, exists := bc.blocks[h]; exists {
		return h, nil
	}

	parentHeight, ok := bc.height[b.Header.Parent]
	if !ok {
		return h, ErrUnknownParent
	}

	newHeight := parentHeight + 1
	bc.blocks[h] = b
	bc.height[h] = newHeight

	if newHeight > bc.longest {
		bc.longest = newHeight
		bc.tip = h
		bc.log.Info().Str("block", h.Hex()).Uint64("height", newHeight).Msg("tip advanced")
	}

	return h, nil
}

// TipLocked returns the current tip without acquiring the lock — for
// callers that already hold it.
func (bc *Blockchain) TipLocked() types.H256 { return bc.tip }

// HeightLocked returns the height of a known block without acquiring
// the lock.
func (bc *Blockchain) HeightLocked(h types.H256) (uint64, bool) {
	height, ok := bc.height[h]
	return height, ok
}

// ContainsLocked reports block membership without acquiring the lock.
func (bc *Blockchain) ContainsLocked(h types.H256) bool {
	_, ok := bc.blocks[h]
	return ok
}

// GetLocked returns an admitted block without acquiring the lock.
func (bc *Blockchain) GetLocked(h types.H256) (*block.Block, bool) {
	b, ok := bc.blocks[h]
	return b, ok
}

// Tip returns the hash of the current chain tip.
func (bc *Blockchain) Tip() types.H256 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Longest returns the height of the current tip.
func (bc *Blockchain) Longest() uint64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.longest
}

// Height returns the height of a known block.
func (bc *Blockchain) Height(h types.H256) (uint64, bool) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	height, ok := bc.height[h]
	return height, ok
}

// Contains reports whether h has been admitted into the block tree.
func (bc *Blockchain) Contains(h types.H256) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	_, ok := bc.blocks[h]
	return ok
}

// Get returns the admitted block for h, if any.
func (bc *Blockchain) Get(h types.H256) (*block.Block, bool) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	b, ok := bc.blocks[h]
	return b, ok
}

// AllBlocksInLongestChain walks parent links from the tip back to
// genesis and returns the hashes in genesis-first order. The result
// always has length Longest()+1.
func (bc *Blockchain) AllBlocksInLongestChain() []types.H256 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	hashes := make([]types.H256, bc.longest+1)
	cur := bc.tip
	for i := int(bc.longest); i >= 0; i-- {
		hashes[i] = cur
		b := bc.blocks[cur]
		if b == nil {
			break
		}
		cur = b.Header.Parent
	}
	return hashes
}

// BlockHashAtHeightInLongestChain returns the hash of the block at the
// given height on the current longest chain, if height is in range.
func (bc *Blockchain) BlockHashAtHeightInLongestChain(height uint64) (types.H256, bool) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if height > bc.longest {
		return types.H256{}, false
	}

	cur := bc.tip
	for i := bc.longest; i > height; i-- {
		b := bc.blocks[cur]
		if b == nil {
			return types.H256{}, false
		}
		cur = b.Header.Parent
	}
	return cur, true
}

// AllBlocksAndTxsInLongestChain returns, per block in genesis-first
// order, the block hash alongside the hashes of its transactions — the
// shape the HTTP admin API's /longest-chain-tx endpoint serves.
func (bc *Blockchain) AllBlocksAndTxsInLongestChain() ([]types.H256, [][]types.H256) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	hashes := make([]types.H256, bc.longest+1)
	txHashes := make([][]types.H256, bc.longest+1)
	cur := bc.tip
	for i := int(bc.longest); i >= 0; i-- {
		hashes[i] = cur
		b := bc.blocks[cur]
		if b == nil {
			break
		}
		txs := make([]types.H256, len(b.Content.Transactions))
		for j := range b.Content.Transactions {
			txs[j] = b.Content.Transactions[j].Hash()
		}
		txHashes[i] = txs
		cur = b.Header.Parent
	}
	return hashes, txHashes
}
