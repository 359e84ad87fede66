package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gochain/utxonode/pkg/api"
	"github.com/gochain/utxonode/pkg/block"
	"github.com/gochain/utxonode/pkg/chain"
	"github.com/gochain/utxonode/pkg/config"
	"github.com/gochain/utxonode/pkg/gossip"
	"github.com/gochain/utxonode/pkg/logger"
	"github.com/gochain/utxonode/pkg/mempool"
	"github.com/gochain/utxonode/pkg/miner"
	"github.com/gochain/utxonode/pkg/state"
	"github.com/gochain/utxonode/pkg/transport"
	"github.com/gochain/utxonode/pkg/txgen"
	"github.com/gochain/utxonode/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "gochain-node",
		Short: "gochain-node runs a proof-of-work UTXO blockchain node",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	root.AddCommand(runCmd())
	root.AddCommand(genesisHashCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "start the node: gossip worker pool, miner, generator, and admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode()
		},
	}
}

func genesisHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genesis-hash",
		Short: "print the fixed genesis block hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(block.NewGenesisBlock().Hash().Hex())
			return nil
		},
	}
}

func runNode() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)

	genesis := block.NewGenesisBlock()
	genesisHash := genesis.Hash()

	bc := chain.New()
	mp := mempool.New()
	snaps := state.NewSnapshotMap(genesisHash)
	snaps.Set(genesisHash, state.New())
	orphans := gossip.NewOrphanBuffer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inbound := make(chan gossip.Envelope, 256)
	tr, err := transport.New(ctx, cfg.Network.Port, inbound)
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer tr.Close()

	for _, addr := range cfg.Network.BootstrapPeers {
		if err := tr.Connect(addr); err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("failed to connect to bootstrap peer")
		}
	}

	pool := gossip.NewPool(bc, mp, snaps, orphans, inbound, tr, cfg.Network.WorkerCount)
	pool.Run()
	defer pool.Stop()

	m := miner.New(bc, mp, snaps)
	go m.Run()
	go func() {
		for h := range m.Finished() {
			if err := tr.Broadcast(gossip.NewBlockHashes([]types.H256{h}).Encode()); err != nil {
				log.Warn().Err(err).Msg("failed to announce mined block")
			}
		}
	}()
	if cfg.Miner.Autostart {
		m.Start(cfg.Miner.Lambda)
	}

	gen := txgen.New(bc, mp, snaps, tr)
	go gen.Run()
	go gen.RunWorker()
	if cfg.TxGen.Autostart {
		gen.Start(cfg.TxGen.Theta)
	}

	server := api.New(bc, mp, snaps, m, gen, tr)
	httpServer := &http.Server{Addr: cfg.API.ListenAddr, Handler: server.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin API server stopped unexpectedly")
		}
	}()

	log.Info().
		Str("peer_id", tr.ID()).
		Str("api", cfg.API.ListenAddr).
		Str("genesis", genesisHash.Hex()).
		Msg("gochain node started")
	for _, addr := range tr.Addrs() {
		log.Info().Str("listen_addr", addr).Msg("transport listening")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	return nil
}
