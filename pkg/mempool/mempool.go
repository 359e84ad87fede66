// Package mempool holds pending signed transactions awaiting inclusion
// in a block, along with the bookkeeping needed to reject double-spends.
package mempool

import (
	"sync"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/cache"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// evidenceShadowCacheSize bounds the recency index kept alongside the
// (never-cleared) tx_evidence set. It has no bearing on correctness;
// the mempool records into it but no mempool method reads it back.
const evidenceShadowCacheSize = 4096

// Mempool tracks currently available transactions, every hash ever
// admitted (so a removed transaction can never be revived), and which
// mempool transaction currently reserves each outpoint.
type Mempool struct {
	mu sync.RWMutex

	txMap       map[types.H256]block.SignedTransaction
	evidence    map[types.H256]struct{}
	spentTxIn   map[block.Outpoint]types.H256
	order       []types.H256 // insertion order, for "up to 50 in iteration order"
	evidenceLRU *cache.LRUCache[types.H256]

	log zerolog.Logger
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		txMap:       make(map[types.H256]block.SignedTransaction),
		evidence:    make(map[types.H256]struct{}),
		spentTxIn:   make(map[block.Outpoint]types.H256),
		evidenceLRU: cache.NewLRUCache[types.H256](evidenceShadowCacheSize),
		log:         log.With().Str("component", "mempool").Logger(),
	}
}

// Lock acquires the mempool's exclusive lock. Callers needing multiple
// subsystem locks must acquire the chain's lock first (see
// pkg/gossip/locks.go for the fixed order).
func (m *Mempool) Lock() { m.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (m *Mempool) Unlock() { m.mu.Unlock() }

// Insert admits tx iff: its hash has never been evidenced, its inputs
// contain no internal duplicates, and none of its inputs are already
// reserved by another mempool transaction. Returns false (and makes no
// change) if any rule fails.
func (m *Mempool) Insert(stx block.SignedTransaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InsertLocked(stx)
}

// InsertLocked is Insert's body, for callers that already hold Lock.
func (m *Mempool) InsertLocked(stx block.SignedTransaction) bool {
	h := stx.Hash()
	if _, seen := m.evidence[h]; seen {
		return false
	}
	if !stx.Transaction.DistinctInputs() {
		return false
	}
	for _, in := range stx.Transaction.Inputs {
		if _, reserved := m.spentTxIn[in.Outpoint()]; reserved {
			return false
		}
	}

	for _, in := range stx.Transaction.Inputs {
		m.spentTxIn[in.Outpoint()] = h
	}
	m.txMap[h] = stx
	m.evidence[h] = struct{}{}
	m.evidenceLRU.Add(h)
	m.order = append(m.order, h)

	m.log.Debug().Str("tx", h.Hex()).Msg("admitted to mempool")
	return true
}

// Remove deletes stx from tx_map by its hash. The hash remains in
// tx_evidence; spent_tx_in entries are left for the caller to overwrite.
func (m *Mempool) Remove(stx block.SignedTransaction) {
	m.RemoveWithHash(stx.Hash())
}

// RemoveWithHash deletes the tx_map entry for h, if present.
func (m *Mempool) RemoveWithHash(h types.H256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveLocked(h)
}

// RemoveLocked is RemoveWithHash's body, for callers that already hold
// Lock.
func (m *Mempool) RemoveLocked(h types.H256) {
	if _, ok := m.txMap[h]; !ok {
		return
	}
	delete(m.txMap, h)
	for i, oh := range m.order {
		if oh == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// ReserveOutpoint overwrites spent_tx_in[op] = h, evicting (from tx_map
// only) whatever mempool transaction previously reserved it — this is
// the double-spend eviction a miner or block admission performs when a
// block's transactions displace mempool candidates.
func (m *Mempool) ReserveOutpoint(op block.Outpoint, h types.H256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReserveOutpointLocked(op, h)
}

// ReserveOutpointLocked is ReserveOutpoint's body, for callers that
// already hold Lock.
func (m *Mempool) ReserveOutpointLocked(op block.Outpoint, h types.H256) {
	if prev, ok := m.spentTxIn[op]; ok && prev != h {
		m.RemoveLocked(prev)
	}
	m.spentTxIn[op] = h
}

// Contains reports whether h is in tx_map.
func (m *Mempool) Contains(h types.H256) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txMap[h]
	return ok
}

// Evidenced reports whether h has ever been inserted, regardless of
// whether it is still present in tx_map.
func (m *Mempool) Evidenced(h types.H256) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.evidence[h]
	return ok
}

// Get returns the transaction currently held for h.
func (m *Mempool) Get(h types.H256) (block.SignedTransaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stx, ok := m.txMap[h]
	return stx, ok
}

// Len returns the number of transactions currently in tx_map.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// SelectUpTo returns up to n transactions in insertion order, without
// removing them — the miner's candidate set for a block.
func (m *Mempool) SelectUpTo(n int) []block.SignedTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SelectUpToLocked(n)
}

// SelectUpToLocked is SelectUpTo's body, for callers that already hold
// Lock (or RLock).
func (m *Mempool) SelectUpToLocked(n int) []block.SignedTransaction {
	if n > len(m.order) {
		n = len(m.order)
	}
	selected := make([]block.SignedTransaction, 0, n)
	for _, h := range m.order[:n] {
		selected = append(selected, m.txMap[h])
	}
	return selected
}

// LenLocked returns len(tx_map) for callers that already hold the lock.
func (m *Mempool) LenLocked() int { return len(m.order) }

// AllHashes returns every hash currently in tx_map, for the HTTP admin
// API's /txs-in-mempool endpoint.
func (m *Mempool) AllHashes() []types.H256 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hashes := make([]types.H256, len(m.order))
	copy(hashes, m.order)
	return hashes
}
