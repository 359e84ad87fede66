package state

import (
	"sync"

	"github.com/gochain/utxonode/pkg/types"
)

// SnapshotMap records the UTXO state immediately after each admitted
// block, keyed by block hash. It is populated once per block, never
// updated in place.
type SnapshotMap struct {
	mu   sync.RWMutex
	snap map[types.H256]*State
}

// NewSnapshotMap constructs an empty snapshot map seeded with the
// genesis block's hash mapped to the ICO state.
func NewSnapshotMap(genesisHash types.H256) *SnapshotMap {
	return &SnapshotMap{
		snap: map[types.H256]*State{genesisHash: New()},
	}
}

// Lock acquires the snapshot map's exclusive lock. This is the last
// lock in the fixed Blockchain → Mempool → State → OrphanBuffer →
// BlockToStateMap order (see pkg/gossip/locks.go).
func (m *SnapshotMap) Lock() { m.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (m *SnapshotMap) Unlock() { m.mu.Unlock() }

// Set records the state snapshot for a newly admitted block.
func (m *SnapshotMap) Set(blockHash types.H256, s *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetLocked(blockHash, s)
}

// SetLocked is Set's body, for callers that already hold Lock.
func (m *SnapshotMap) SetLocked(blockHash types.H256, s *State) {
	m.snap[blockHash] = s
}

// Get returns the snapshot recorded for a block hash, if any.
func (m *SnapshotMap) Get(blockHash types.H256) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.GetLocked(blockHash)
}

// GetLocked is Get's body, for callers that already hold Lock (or
// RLock).
func (m *SnapshotMap) GetLocked(blockHash types.H256) (*State, bool) {
	s, ok := m.snap[blockHash]
	return s, ok
}
