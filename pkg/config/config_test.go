package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Network.Port)
	assert.Equal(t, 4, cfg.Network.WorkerCount)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.ListenAddr)
	assert.False(t, cfg.Miner.Autostart)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadReadsExplicitYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	contents := `
network:
  port: 9000
  worker_count: 8
  bootstrap_peers:
    - /ip4/127.0.0.1/tcp/9001/p2p/abc
miner:
  lambda: 1000
  autostart: true
api:
  listen_addr: "0.0.0.0:9090"
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Network.Port)
	assert.Equal(t, 8, cfg.Network.WorkerCount)
	assert.Equal(t, []string{"/ip4/127.0.0.1/tcp/9001/p2p/abc"}, cfg.Network.BootstrapPeers)
	assert.Equal(t, uint64(1000), cfg.Miner.Lambda)
	assert.True(t, cfg.Miner.Autostart)
	assert.Equal(t, "0.0.0.0:9090", cfg.API.ListenAddr)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadRejectsZeroWorkerCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  worker_count: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
