// Package miner assembles candidate blocks from the mempool and
// searches for a nonce satisfying the proof-of-work target.
package miner

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxTxPerBlock is the number of mempool candidates a mined block may
// include, selected in mempool iteration order — no fee ordering.
const maxTxPerBlock = 50

type commandKind int

const (
	cmdStart commandKind = iota
	cmdUpdate
	cmdExit
)

type command struct {
	kind   commandKind
	lambda uint64
}

// Miner is the control loop that assembles and mines blocks. It is
// driven by a three-valued operating state — Paused, Run(lambda), and
// ShutDown — reached via Start, Update, and Exit.
type Miner struct {
	chain     *chain.Blockchain
	mempool   *mempool.Mempool
	snapshots *state.SnapshotMap

	control  chan command
	finished chan types.H256

	log zerolog.Logger
}

// New constructs a miner over the given subsystems. Call Run in its own
// goroutine to start the control loop; it begins Paused.
func New(bc *chain.Blockchain, mp *mempool.Mempool, snaps *state.SnapshotMap) *Miner {
	return &Miner{
		chain:     bc,
		mempool:   mp,
		snapshots: snaps,
		control:   make(chan command),
		finished:  make(chan types.H256, 16),
		log:       log.With().Str("component", "miner").Logger(),
	}
}

// Finished yields the hash of each block this miner successfully mines,
// in the order they were mined. It buffers 16 hashes; a notification
// that finds the buffer full is dropped.
func (m *Miner) Finished() <-chan types.H256 { return m.finished }

// Start transitions the miner into Run(lambda): it begins polling the
// mempool for candidate blocks, sleeping lambda microseconds between
// iterations (no sleep if lambda is 0).
func (m *Miner) Start(lambda uint64) { m.control <- command{kind: cmdStart, lambda: lambda} }

// Update changes lambda while already running.
func (m *Miner) Update(lambda uint64) { m.control <- command{kind: cmdUpdate, lambda: lambda} }

// Exit transitions the miner to ShutDown; Run then returns.
func (m *Miner) Exit() { m.control <- command{kind: cmdExit} }

// Run is the miner's control loop. It blocks on the control channel
// while Paused, and polls it non-blocking between mining iterations
// while Running. Channel closure is treated as a fatal programmer
// error, matching the rest of the control-plane error policy.
func (m *Miner) Run() {
	var lambda uint64
	running := false

	for {
		if !running {
			cmd, ok := <-m.control
			if !ok {
				panic("miner: control channel closed")
			}
			if cmd.kind == cmdExit {
				return
			}
			running = m.applyCommand(cmd, &lambda)
			continue
		}

		select {
		case cmd, ok := <-m.control:
			if !ok {
				panic("miner: control channel closed")
			}
			if cmd.kind == cmdExit {
				return
			}
			running = m.applyCommand(cmd, &lambda)
			continue
		default:
		}

		m.mineOnce()

		if lambda > 0 {
			time.Sleep(time.Duration(lambda) * time.Microsecond)
		}
	}
}

// applyCommand processes one control message and reports whether the
// miner should continue running afterward.
func (m *Miner) applyCommand(cmd command, lambda *uint64) bool {
	switch cmd.kind {
	case cmdStart:
		*lambda = cmd.lambda
		return true
	case cmdUpdate:
		*lambda = cmd.lambda
		return true
	case cmdExit:
		return false
	default:
		return false
	}
}

// mineOnce runs one iteration of the §4.6 algorithm: select candidates,
// search for a satisfying nonce, and on success apply the block's
// effects atomically under the full lockset.
func (m *Miner) mineOnce() {
	m.chain.Lock()
	defer m.chain.Unlock()
	m.mempool.Lock()
	defer m.mempool.Unlock()
	m.snapshots.Lock()
	defer m.snapshots.Unlock()

	if m.mempool.LenLocked() == 0 {
		return
	}

	parentHash := m.chain.TipLocked()
	parent, ok := m.chain.GetLocked(parentHash)
	if !ok {
		return
	}

	candidates := m.mempool.SelectUpToLocked(maxTxPerBlock)

	nonce := randomNonce()
	timestamp := uint64(time.Now().UnixMilli())

	header := block.Header{
		Parent:     parentHash,
		Nonce:      nonce,
		Difficulty: parent.Header.Difficulty,
		Timestamp:  timestamp,
		MerkleRoot: types.ZeroHash,
	}
	candidate := &block.Block{Header: header, Content: block.Content{Transactions: candidates}}
	candidate.Header.MerkleRoot = candidate.CalculateMerkleRoot()

	if !candidate.MeetsDifficulty(parent.Header.Difficulty) {
		return
	}

	snap, ok := m.snapshots.GetLocked(parentHash)
	if !ok {
		return
	}

	for i := range candidate.Content.Transactions {
		stx := &candidate.Content.Transactions[i]
		h := stx.Hash()

		m.mempool.RemoveLocked(h)
		snap = snap.Apply(stx)
		for _, in := range stx.Transaction.Inputs {
			m.mempool.ReserveOutpointLocked(in.Outpoint(), h)
		}
	}

	h, err := m.chain.InsertLocked(candidate)
	if err != nil {
		m.log.Error().Err(err).Msg("mined block rejected by chain")
		return
	}
	m.snapshots.SetLocked(h, snap)

	m.log.Info().Str("block", h.Hex()).Int("txs", len(candidate.Content.Transactions)).Msg("mined block")

	select {
	case m.finished <- h:
	default:
		m.log.Warn().Msg("finished-block channel full, dropping notification")
	}
}

// randomNonce samples a uniformly random 32-bit nonce.
func randomNonce() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint32(buf[:])
}
