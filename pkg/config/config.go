// Package config loads node configuration from a YAML file via viper,
// with defaults that run a single node out of the box.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the node's full runtime configuration.
type Config struct {
	Network NetworkConfig
	Miner   MinerConfig
	TxGen   TxGenConfig
	API     APIConfig
	Log     LogConfig
}

// NetworkConfig configures the libp2p transport and gossip worker pool.
type NetworkConfig struct {
	Port           int
	BootstrapPeers []string
	WorkerCount    int
}

// MinerConfig configures the miner's autostart behavior.
type MinerConfig struct {
	Lambda    uint64
	Autostart bool
}

// TxGenConfig configures the transaction generator's autostart behavior.
type TxGenConfig struct {
	Theta     uint64
	Autostart bool
}

// APIConfig configures the HTTP admin surface.
type APIConfig struct {
	ListenAddr string
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level string
	JSON  bool
}

// setDefaults seeds every key with the value a single-node, localhost
// run should use when the config file and environment are silent.
func setDefaults(v *viper.Viper) {
	v.SetDefault("network.port", 0)
	v.SetDefault("network.bootstrap_peers", []string{})
	v.SetDefault("network.worker_count", 4)
	v.SetDefault("miner.lambda", 0)
	v.SetDefault("miner.autostart", false)
	v.SetDefault("txgen.theta", 0)
	v.SetDefault("txgen.autostart", false)
	v.SetDefault("api.listen_addr", "127.0.0.1:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load reads configuration from configFile (if non-empty), otherwise
// from ./config.yaml or ./config/config.yaml. Environment variables
// prefixed GOCHAIN_ (e.g. GOCHAIN_NETWORK_PORT) override file values, and
// the defaults above apply to keys neither sets.
// A missing config file is not an error — only a malformed one is.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("gochain")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{
		Network: NetworkConfig{
			Port:           v.GetInt("network.port"),
			BootstrapPeers: v.GetStringSlice("network.bootstrap_peers"),
			WorkerCount:    v.GetInt("network.worker_count"),
		},
		Miner: MinerConfig{
			Lambda:    v.GetUint64("miner.lambda"),
			Autostart: v.GetBool("miner.autostart"),
		},
		TxGen: TxGenConfig{
			Theta:     v.GetUint64("txgen.theta"),
			Autostart: v.GetBool("txgen.autostart"),
		},
		API: APIConfig{
			ListenAddr: v.GetString("api.listen_addr"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}

	if cfg.Network.WorkerCount < 1 {
		return nil, fmt.Errorf("config: network.worker_count must be at least 1, got %d", cfg.Network.WorkerCount)
	}

	return cfg, nil
}
