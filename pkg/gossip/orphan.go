package gossip

import (
	"sync"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/types"
)

// OrphanBuffer holds blocks whose parent is not yet known, keyed by the
// missing parent hash. At most one orphan is kept per missing parent —
// a later arrival for an already-buffered parent is dropped.
type OrphanBuffer struct {
	mu       sync.RWMutex
	byParent map[types.H256]*block.Block
	byHash   map[types.H256]*block.Block // secondary index, for GetBlocks lookups
}

// NewOrphanBuffer constructs an empty orphan buffer.
func NewOrphanBuffer() *OrphanBuffer {
	return &OrphanBuffer{
		byParent: make(map[types.H256]*block.Block),
		byHash:   make(map[types.H256]*block.Block),
	}
}

// Lock acquires the orphan buffer's exclusive lock. This is the third
// stage in the fixed lock order (see locks.go).
func (ob *OrphanBuffer) Lock() { ob.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (ob *OrphanBuffer) Unlock() { ob.mu.Unlock() }

// InsertLocked buffers b keyed by its parent hash, unless that parent
// already has a buffered orphan, in which case b is dropped and false
// is returned.
func (ob *OrphanBuffer) InsertLocked(b *block.Block) bool {
	parent := b.Header.Parent
	if _, exists := ob.byParent[parent]; exists {
		return false
	}
	ob.byParent[parent] = b
	ob.byHash[b.Hash()] = b
	return true
}

// ContainsLocked reports whether an orphan is buffered for parent.
func (ob *OrphanBuffer) ContainsLocked(parent types.H256) bool {
	_, ok := ob.byParent[parent]
	return ok
}

// GetByHashLocked returns a buffered orphan by its own hash, for
// GetBlocks replies that can be served from the orphan buffer.
func (ob *OrphanBuffer) GetByHashLocked(h types.H256) (*block.Block, bool) {
	b, ok := ob.byHash[h]
	return b, ok
}

// PopChildrenLocked removes and returns every orphan whose parent hash
// equals h — used by the BFS orphan flush once h has been admitted.
func (ob *OrphanBuffer) PopChildrenLocked(h types.H256) []*block.Block {
	b, ok := ob.byParent[h]
	if !ok {
		return nil
	}
	delete(ob.byParent, h)
	delete(ob.byHash, b.Hash())
	return []*block.Block{b}
}

// Len returns the number of buffered orphans.
func (ob *OrphanBuffer) Len() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.byParent)
}
