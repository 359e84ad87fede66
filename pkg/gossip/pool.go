// Package gossip implements the network worker pool: wire message
// decode, lock-ordered block and transaction admission, orphan-block
// breadth-first reassembly, and broadcast fan-out.
package gossip

import (
	"sync"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PeerHandle identifies a remote peer a worker can reply to.
type PeerHandle interface {
	ID() string
	Send(msg []byte) error
}

// Envelope pairs an inbound wire payload with the peer it arrived from.
type Envelope struct {
	Payload []byte
	From    PeerHandle
}

// Broadcaster fans a message out to every connected peer. Implemented
// by pkg/transport.
type Broadcaster interface {
	Broadcast(msg []byte) error
}

// Pool is a fixed-size worker pool that consumes inbound envelopes from
// a shared channel and drives chain/mempool/state transitions.
type Pool struct {
	chain       *chain.Blockchain
	mempool     *mempool.Mempool
	snapshots   *state.SnapshotMap
	orphans     *OrphanBuffer
	inbound     <-chan Envelope
	broadcaster Broadcaster

	workerCount int
	stop        chan struct{}
	wg          sync.WaitGroup
	log         zerolog.Logger
}

// NewPool constructs a worker pool over the given subsystems, consuming
// envelopes from inbound and using broadcaster to fan messages out.
func NewPool(
	bc *chain.Blockchain,
	mp *mempool.Mempool,
	snaps *state.SnapshotMap,
	orphans *OrphanBuffer,
	inbound <-chan Envelope,
	broadcaster Broadcaster,
	workerCount int,
) *Pool {
	return &Pool{
		chain:       bc,
		mempool:     mp,
		snapshots:   snaps,
		orphans:     orphans,
		inbound:     inbound,
		broadcaster: broadcaster,
		workerCount: workerCount,
		stop:        make(chan struct{}),
		log:         log.With().Str("component", "gossip").Logger(),
	}
}

// Run spawns the worker pool's goroutines. It returns immediately; call
// Stop to shut the pool down.
func (p *Pool) Run() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
}

// Stop signals every worker to exit and waits for them to return.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case env, ok := <-p.inbound:
			if !ok {
				return
			}
			p.handle(env)
		}
	}
}

func (p *Pool) handle(env Envelope) {
	msg, err := Decode(env.Payload)
	if err != nil {
		p.log.Warn().Err(err).Str("peer", env.From.ID()).Msg("malformed wire message")
		return
	}

	switch msg.Kind {
	case KindPing:
		p.reply(env, Pong(msg.Nonce))

	case KindPong:
		p.log.Debug().Str("peer", env.From.ID()).Uint64("nonce", msg.Nonce).Msg("pong")

	case KindNewBlockHashes:
		p.handleNewBlockHashes(env, msg.Hashes)

	case KindGetBlocks:
		p.handleGetBlocks(env, msg.Hashes)

	case KindBlocks:
		p.handleBlocks(msg.Blocks)

	case KindNewTransactionHashes:
		p.handleNewTransactionHashes(env, msg.Hashes)

	case KindGetTransactions:
		p.handleGetTransactions(env, msg.Hashes)

	case KindTransactions:
		p.handleTransactions(msg.Transactions)
	}
}

func (p *Pool) reply(env Envelope, m Message) {
	if err := env.From.Send(m.Encode()); err != nil {
		p.log.Warn().Err(err).Str("peer", env.From.ID()).Msg("reply failed")
	}
}

func (p *Pool) broadcast(m Message) {
	if err := p.broadcaster.Broadcast(m.Encode()); err != nil {
		p.log.Warn().Err(err).Msg("broadcast failed")
	}
}

func (p *Pool) handleNewBlockHashes(env Envelope, hashes []types.H256) {
	g := AcquireChain(p.chain).Mempool(p.mempool).Orphan(p.orphans)
	defer g.Release()

	var missing []types.H256
	for _, h := range hashes {
		if g.Chain().ContainsLocked(h) {
			continue
		}
		if _, ok := g.Orphan().GetByHashLocked(h); ok {
			continue
		}
		missing = append(missing, h)
	}
	if len(missing) > 0 {
		p.reply(env, GetBlocks(missing))
	}
}

func (p *Pool) handleGetBlocks(env Envelope, hashes []types.H256) {
	g := AcquireChain(p.chain).Mempool(p.mempool).Orphan(p.orphans)
	defer g.Release()

	var found []*block.Block
	for _, h := range hashes {
		if b, ok := g.Chain().GetLocked(h); ok {
			found = append(found, b)
			continue
		}
		if b, ok := g.Orphan().GetByHashLocked(h); ok {
			found = append(found, b)
		}
	}
	if len(found) > 0 {
		p.reply(env, Blocks(found))
	}
}

func (p *Pool) handleNewTransactionHashes(env Envelope, hashes []types.H256) {
	var missing []types.H256
	for _, h := range hashes {
		if !p.mempool.Evidenced(h) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		p.reply(env, GetTransactions(missing))
	}
}

func (p *Pool) handleGetTransactions(env Envelope, hashes []types.H256) {
	var found []block.SignedTransaction
	for _, h := range hashes {
		if stx, ok := p.mempool.Get(h); ok {
			found = append(found, stx)
		}
	}
	if len(found) > 0 {
		p.reply(env, Transactions(found))
	}
}

func (p *Pool) handleTransactions(txs []block.SignedTransaction) {
	var admitted []types.H256

	for i := range txs {
		stx := txs[i]
		h := stx.Hash()
		if p.mempool.Evidenced(h) {
			continue
		}

		tipHash := p.chain.Tip()
		snap, ok := p.snapshots.Get(tipHash)
		if !ok {
			continue
		}
		if err := state.Validate(snap, &stx); err != nil {
			continue
		}
		if p.mempool.Insert(stx) {
			admitted = append(admitted, h)
		}
	}

	if len(admitted) > 0 {
		p.broadcast(NewTransactionHashes(admitted))
	}
}

// handleBlocks runs the block-admission algorithm over a batch of
// received blocks, in order: skip already-known blocks, buffer orphans
// and request their parent, or validate and apply a block whose parent
// is already in the chain — then breadth-first flush any buffered
// orphans the newly admitted block unblocks.
func (p *Pool) handleBlocks(blocks []*block.Block) {
	g := AcquireChain(p.chain).Mempool(p.mempool).Orphan(p.orphans).Snapshots(p.snapshots)
	defer g.Release()

	var missingParents []types.H256
	var admittedHashes []types.H256

	for _, b := range blocks {
		h := b.Hash()
		if g.Chain().ContainsLocked(h) {
			continue
		}

		parent := b.Header.Parent
		if !g.Chain().ContainsLocked(parent) {
			if g.Orphan().InsertLocked(b) {
				missingParents = append(missingParents, parent)
			}
			continue
		}

		if p.admitOneLocked(g, b) {
			admittedHashes = append(admittedHashes, h)
			admittedHashes = append(admittedHashes, p.flushOrphansLocked(g, h)...)
		}
	}

	if len(missingParents) > 0 {
		p.broadcast(GetBlocks(missingParents))
	}
	if len(admittedHashes) > 0 {
		p.broadcast(NewBlockHashes(admittedHashes))
	}
}

// admitOneLocked validates b's PoW and every transaction it carries
// against the parent's recorded state snapshot, then applies it. All
// four lockset stages must already be held by g.
func (p *Pool) admitOneLocked(g SnapshotGuard, b *block.Block) bool {
	parent, ok := g.Chain().GetLocked(b.Header.Parent)
	if !ok {
		return false
	}
	if !b.MeetsDifficulty(parent.Header.Difficulty) {
		return false
	}

	snap, ok := g.Snapshots().GetLocked(b.Header.Parent)
	if !ok {
		return false
	}

	for i := range b.Content.Transactions {
		if err := state.Validate(snap, &b.Content.Transactions[i]); err != nil {
			return false
		}
	}

	newSnap := applyTransactionsLocked(g, snap, b.Content.Transactions)

	h := b.Hash()
	if _, err := g.Chain().InsertLocked(b); err != nil {
		return false
	}
	g.Snapshots().SetLocked(h, newSnap)
	return true
}

// applyTransactionsLocked applies txs to snap in order, performing the
// mempool-eviction bookkeeping a block's effects supersede: each
// selected transaction is removed from the mempool, then
// spent_tx_in is overwritten for its inputs, evicting any mempool
// transaction that had reserved the same outpoint.
func applyTransactionsLocked(g SnapshotGuard, snap *state.State, txs []block.SignedTransaction) *state.State {
	next := snap
	for i := range txs {
		stx := &txs[i]
		h := stx.Hash()

		g.Mempool().RemoveLocked(h)
		next = next.Apply(stx)
		for _, in := range stx.Transaction.Inputs {
			g.Mempool().ReserveOutpointLocked(in.Outpoint(), h)
		}
	}
	return next
}

// flushOrphansLocked performs the breadth-first orphan flush: every
// buffered orphan whose parent is h gets applied in turn, and each
// successful admission re-enqueues its own hash to look for further
// children.
func (p *Pool) flushOrphansLocked(g SnapshotGuard, h types.H256) []types.H256 {
	var flushed []types.H256
	queue := []types.H256{h}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children := g.Orphan().PopChildrenLocked(parent)
		for _, child := range children {
			if !p.admitOneLocked(g, child) {
				continue
			}
			childHash := child.Hash()
			flushed = append(flushed, childHash)
			queue = append(queue, childHash)
		}
	}

	return flushed
}
