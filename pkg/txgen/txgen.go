// Package txgen continuously produces valid spend transactions from a
// fixed, deterministic universe of participants to drive the network.
package txgen

import (
	"crypto/ed25519"
	"fmt"
	"math/rand"
	"time"

	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/gossip"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// keyringSize is the number of known participants: seeds "00" through
// "10", inclusive.
const keyringSize = 11

// minWalkTotal is the cumulative input value a spend walk collects
// before it stops adding more of the owner's UTXOs as inputs.
const minWalkTotal = 1000

// Keypair is one participant in the fixed universe the generator draws
// from.
type Keypair struct {
	Address types.Address
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Keyring builds the fixed, deterministic set of participants: Ed25519
// keys derived from the 32-byte seeds "000...00" through "000...10" —
// participant 0 is, not by coincidence, the ICO recipient.
func Keyring() []Keypair {
	keys := make([]Keypair, keyringSize)
	for i := range keys {
		seed := seedForIndex(i)
		priv := ed25519.NewKeyFromSeed(seed[:])
		pub := priv.Public().(ed25519.PublicKey)
		keys[i] = Keypair{
			Address: types.AddressFromPublicKey(pub),
			Public:  pub,
			Private: priv,
		}
	}
	return keys
}

func seedForIndex(i int) [ed25519.SeedSize]byte {
	var seed [ed25519.SeedSize]byte
	for j := range seed {
		seed[j] = '0'
	}
	suffix := fmt.Sprintf("%02d", i)
	copy(seed[ed25519.SeedSize-len(suffix):], suffix)
	return seed
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdUpdate
	cmdExit
)

type command struct {
	kind  commandKind
	theta uint64
}

// Generator is the transaction-generator control loop plus its worker:
// one goroutine samples and signs candidate spends, a second goroutine
// admits them to the mempool and broadcasts their hashes.
type Generator struct {
	chain     *chain.Blockchain
	mempool   *mempool.Mempool
	snapshots *state.SnapshotMap
	broadcast gossip.Broadcaster

	keyring   []Keypair
	byAddress map[types.Address]ed25519.PrivateKey

	control    chan command
	candidates chan block.SignedTransaction

	rng *rand.Rand
	log zerolog.Logger
}

// New constructs a generator over the given subsystems. Call Run and
// RunWorker each in their own goroutine; the generator starts Paused.
func New(bc *chain.Blockchain, mp *mempool.Mempool, snaps *state.SnapshotMap, broadcaster gossip.Broadcaster) *Generator {
	keyring := Keyring()
	byAddress := make(map[types.Address]ed25519.PrivateKey, len(keyring))
	for _, kp := range keyring {
		byAddress[kp.Address] = kp.Private
	}

	return &Generator{
		chain:      bc,
		mempool:    mp,
		snapshots:  snaps,
		broadcast:  broadcaster,
		keyring:    keyring,
		byAddress:  byAddress,
		control:    make(chan command),
		candidates: make(chan block.SignedTransaction, 64),
		rng:        rand.New(rand.NewSource(1)),
		log:        log.With().Str("component", "txgen").Logger(),
	}
}

// Start transitions the generator into Run(theta).
func (g *Generator) Start(theta uint64) { g.control <- command{kind: cmdStart, theta: theta} }

// Update changes theta while already running.
func (g *Generator) Update(theta uint64) { g.control <- command{kind: cmdUpdate, theta: theta} }

// Exit transitions the generator to ShutDown; Run and RunWorker then
// return.
func (g *Generator) Exit() {
	g.control <- command{kind: cmdExit}
	close(g.candidates)
}

// Run is the generator's control loop: sample, sign, and push candidate
// transactions while Running, sleeping theta*300µs between iterations.
func (g *Generator) Run() {
	var theta uint64
	running := false

	for {
		if !running {
			cmd, ok := <-g.control
			if !ok {
				panic("txgen: control channel closed")
			}
			if cmd.kind == cmdExit {
				return
			}
			running = g.applyCommand(cmd, &theta)
			continue
		}

		select {
		case cmd, ok := <-g.control:
			if !ok {
				panic("txgen: control channel closed")
			}
			if cmd.kind == cmdExit {
				return
			}
			running = g.applyCommand(cmd, &theta)
			continue
		default:
		}

		if !running {
			continue
		}

		g.stepOnce()

		if theta > 0 {
			time.Sleep(time.Duration(theta) * 300 * time.Microsecond)
		}
	}
}

func (g *Generator) applyCommand(cmd command, theta *uint64) bool {
	switch cmd.kind {
	case cmdStart:
		*theta = cmd.theta
		return true
	case cmdUpdate:
		*theta = cmd.theta
		return true
	case cmdExit:
		return false
	default:
		return false
	}
}

// RunWorker consumes generated candidates, admits them to the mempool,
// and broadcasts the hash of every one actually admitted.
func (g *Generator) RunWorker() {
	for stx := range g.candidates {
		if g.mempool.Insert(stx) {
			h := stx.Hash()
			if err := g.broadcast.Broadcast(gossip.NewTransactionHashes([]types.H256{h}).Encode()); err != nil {
				g.log.Warn().Err(err).Msg("broadcast failed")
			}
		}
	}
}

// stepOnce runs one iteration of the §4.8 sampling algorithm.
func (g *Generator) stepOnce() {
	tip := g.chain.Tip()
	snap, ok := g.snapshots.Get(tip)
	if !ok {
		return
	}

	utxo := snap.Snapshot()
	if len(utxo) == 0 {
		return
	}

	outpoints := make([]block.Outpoint, 0, len(utxo))
	for op := range utxo {
		outpoints = append(outpoints, op)
	}
	k := outpoints[g.rng.Intn(len(outpoints))]
	owner := utxo[k].Recipient

	var inputs []block.TxIn
	var total uint64
	for op, entry := range utxo {
		if entry.Recipient != owner {
			continue
		}
		inputs = append(inputs, block.TxIn{PreviousOutput: op.Hash, Index: op.Index})
		total += entry.Value
		if total > minWalkTotal {
			break
		}
	}
	if total == 0 {
		return
	}

	recipient := g.pickRecipientExcluding(owner)

	valueSent := total / 4
	if valueSent < 1 {
		valueSent = 1
	}
	refund := total - valueSent

	outputs := []block.TxOut{{Recipient: recipient, Value: valueSent}}
	if refund > 0 {
		outputs = append(outputs, block.TxOut{Recipient: owner, Value: refund})
	}

	priv, ok := g.byAddress[owner]
	if !ok {
		return
	}

	stx := block.Sign(block.Transaction{Inputs: inputs, Outputs: outputs}, priv)
	if g.mempool.Evidenced(stx.Hash()) {
		return
	}

	g.candidates <- *stx
}

func (g *Generator) pickRecipientExcluding(owner types.Address) types.Address {
	for {
		kp := g.keyring[g.rng.Intn(len(g.keyring))]
		if kp.Address != owner {
			return kp.Address
		}
	}
}
