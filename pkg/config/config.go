package config

import (
	"fmt"
	"strconv"

	"os"
)

// Config holds all configuration for the tctnode service.
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string

	// Storage Configuration
	DataDir string

	// Consensus Configuration
	ChainID string
	P2PPort int
	RPCPort int

	// Service Configuration
	ValidatorID string
	LogLevel    string
}

// Load reads configuration from environment variables. Every field has a
// safe default suitable for local development; there is no Validate step
// requiring production secrets, since this service has none of its own
// (no private keys, no database credentials) - it only accumulates and
// serves commitments.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),

		DataDir: getEnv("DATA_DIR", "./data"),

		ChainID: getEnv("COMETBFT_CHAIN_ID", "tct-node"),
		P2PPort: getEnvInt("COMETBFT_P2P_PORT", 26656),
		RPCPort: getEnvInt("COMETBFT_RPC_PORT", 26657),

		ValidatorID: getEnv("VALIDATOR_ID", "tct-node-default"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// validate is intentionally unexported: unlike the ledger-facing config
// this module is adapted from, there is no secret material whose absence
// should block startup, only a sanity check on the listen address.
func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: API_HOST/API_PORT must not both be empty")
	}
	return nil
}
