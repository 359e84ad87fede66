// Package api serves the HTTP admin surface: miner/generator controls
// and read-only chain/mempool/state introspection.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/gossip"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Miner is the subset of miner.Miner the API drives.
type Miner interface {
	Start(lambda uint64)
}

// Generator is the subset of txgen.Generator the API drives.
type Generator interface {
	Start(theta uint64)
}

// Server is the HTTP admin surface over a running node.
type Server struct {
	router *mux.Router

	chain     *chain.Blockchain
	mempool   *mempool.Mempool
	snapshots *state.SnapshotMap
	miner     Miner
	generator Generator
	broadcast gossip.Broadcaster

	log zerolog.Logger
}

// New constructs a Server wired to the given node subsystems.
func New(
	bc *chain.Blockchain,
	mp *mempool.Mempool,
	snaps *state.SnapshotMap,
	m Miner,
	g Generator,
	broadcaster gossip.Broadcaster,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		chain:     bc,
		mempool:   mp,
		snapshots: snaps,
		miner:     m,
		generator: g,
		broadcast: broadcaster,
		log:       log.With().Str("component", "api").Logger(),
	}
	s.routes()
	return s
}

// Handler returns the server's http.Handler, ready to pass to
// http.ListenAndServe.
func (s *Server) Handler() http.Handler { return s.requestIDMiddleware(s.router) }

// requestIDMiddleware tags every request with a random UUID, returned in
// the X-Request-ID response header and attached to the request's
// "request received" debug log line. Handlers do not receive the
// per-request logger.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		reqLog := s.log.With().Str("request_id", id).Logger()
		reqLog.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request received")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	s.router.HandleFunc("/miner/start", s.handleMinerStart).Methods(http.MethodPost)
	s.router.HandleFunc("/tx-generator/start", s.handleGeneratorStart).Methods(http.MethodPost)
	s.router.HandleFunc("/network/ping", s.handleNetworkPing).Methods(http.MethodPost)

	s.router.HandleFunc("/blockchain/longest-chain", s.handleLongestChain).Methods(http.MethodGet)
	s.router.HandleFunc("/blockchain/longest-chain-tx", s.handleLongestChainTx).Methods(http.MethodGet)
	s.router.HandleFunc("/blockchain/longest-chain-tx-count", s.handleLongestChainTxCount).Methods(http.MethodGet)
	s.router.HandleFunc("/blockchain/txs-in-mempool", s.handleTxsInMempool).Methods(http.MethodGet)
	s.router.HandleFunc("/blockchain/state", s.handleState).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("api: failed to encode response")
	}
}

func writeFailure(w http.ResponseWriter, reason string) {
	writeJSON(w, map[string]interface{}{"success": false, "message": reason})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]interface{}{"success": false, "message": "endpoint not found"})
}

func parseUint64Param(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.URL.Query().Get(name), 10, 64)
}

func (s *Server) handleMinerStart(w http.ResponseWriter, r *http.Request) {
	lambda, err := parseUint64Param(r, "lambda")
	if err != nil {
		writeFailure(w, "malformed or missing lambda parameter")
		return
	}
	s.miner.Start(lambda)
	writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleGeneratorStart(w http.ResponseWriter, r *http.Request) {
	theta, err := parseUint64Param(r, "theta")
	if err != nil {
		writeFailure(w, "malformed or missing theta parameter")
		return
	}
	s.generator.Start(theta)
	writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleNetworkPing(w http.ResponseWriter, r *http.Request) {
	if err := s.broadcast.Broadcast(gossip.Ping(0).Encode()); err != nil {
		writeFailure(w, err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleLongestChain(w http.ResponseWriter, r *http.Request) {
	hashes := s.chain.AllBlocksInLongestChain()
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	writeJSON(w, out)
}

func (s *Server) handleLongestChainTx(w http.ResponseWriter, r *http.Request) {
	_, txHashes := s.chain.AllBlocksAndTxsInLongestChain()
	out := make([][]string, len(txHashes))
	for i, txs := range txHashes {
		row := make([]string, len(txs))
		for j, h := range txs {
			row[j] = h.Hex()
		}
		out[i] = row
	}
	writeJSON(w, out)
}

func (s *Server) handleLongestChainTxCount(w http.ResponseWriter, r *http.Request) {
	_, txHashes := s.chain.AllBlocksAndTxsInLongestChain()
	count := 0
	for _, txs := range txHashes {
		count += len(txs)
	}
	writeJSON(w, count)
}

func (s *Server) handleTxsInMempool(w http.ResponseWriter, r *http.Request) {
	hashes := s.mempool.AllHashes()
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	writeJSON(w, out)
}

// utxoTuple is one UTXO entry /state serves: tx hash, output index,
// value and recipient. Each entry is encoded as a JSON object with the
// keys tx_hash, index, value and recipient, not as a positional array.
type utxoTuple struct {
	TxHash    string `json:"tx_hash"`
	Index     uint8  `json:"index"`
	Value     uint64 `json:"value"`
	Recipient string `json:"recipient"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	height, err := parseUint64Param(r, "block")
	if err != nil {
		writeFailure(w, "malformed or missing block parameter")
		return
	}

	blockHash, ok := s.chain.BlockHashAtHeightInLongestChain(height)
	if !ok {
		writeFailure(w, "block height out of range")
		return
	}

	snap, ok := s.snapshots.Get(blockHash)
	if !ok {
		writeFailure(w, "no recorded state for that block")
		return
	}

	utxo := snap.Snapshot()
	out := make([]utxoTuple, 0, len(utxo))
	for op, entry := range utxo {
		out = append(out, utxoTuple{
			TxHash:    op.Hash.Hex(),
			Index:     op.Index,
			Value:     entry.Value,
			Recipient: entry.Recipient.Hex(),
		})
	}
	writeJSON(w, out)
}
