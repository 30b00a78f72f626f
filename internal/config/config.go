// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/validation"
)

// Config holds all configuration for the CLI and the server.
type Config struct {
	App     AppConfig
	Wallet  WalletConfig
	Storage StorageConfig
	Algod   AlgodConfig
}

type AppConfig struct {
	LogLevel string `json:"logLevel" validate:"oneof=debug info warn error"`
	Addr     string `json:"addr" validate:"required,hostname_port"`
	// SimDelay is the simulated network delay for broadcast and mixing steps.
	SimDelay time.Duration `json:"simDelay" validate:"gte=0"`
	// NetworkTimeout bounds each wallet call; zero disables it.
	NetworkTimeout time.Duration `json:"networkTimeout" validate:"gte=0"`
}

type WalletConfig struct {
	Network       string `json:"network" validate:"oneof=mainnet testnet"`
	CredentialDir string `json:"credentialDir"`
	// FaucetSats funds every wallet the local ledger sees for the first time.
	FaucetSats int64 `json:"faucetSats" validate:"gte=0"`
}

type StorageConfig struct {
	BackupDir string `json:"backupDir" validate:"required"`
	// BackupKey is a hex AES-256 key; backups are plaintext when empty.
	BackupKey   string `json:"backupKey" validate:"omitempty,hexkey"`
	SnapshotDSN string `json:"snapshotDsn"`
}

// AlgodConfig is written into emitted Algorand programs.
type AlgodConfig struct {
	Server string `json:"server" validate:"required"`
	Token  string `json:"token"`
	Port   string `json:"port"`
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFile reads the given env file instead of ./.env.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			LogLevel:       getEnvWithDefault("CASHFLOW_LOG_LEVEL", "info"),
			Addr:           getEnvWithDefault("CASHFLOW_ADDR", "127.0.0.1:8080"),
			SimDelay:       getEnvAsDuration("CASHFLOW_SIM_DELAY", 500*time.Millisecond),
			NetworkTimeout: getEnvAsDuration("CASHFLOW_NETWORK_TIMEOUT", 0),
		},
		Wallet: WalletConfig{
			Network:       getEnvWithDefault("CASHFLOW_NETWORK", "mainnet"),
			CredentialDir: getEnvWithDefault("CASHFLOW_CREDENTIAL_DIR", ""),
			FaucetSats:    getEnvAsInt64("CASHFLOW_FAUCET_SATS", 0),
		},
		Storage: StorageConfig{
			BackupDir:   getEnvWithDefault("CASHFLOW_BACKUP_DIR", "backups"),
			BackupKey:   getEnvWithDefault("CASHFLOW_BACKUP_KEY", ""),
			SnapshotDSN: getEnvWithDefault("CASHFLOW_SNAPSHOT_DSN", ""),
		},
		Algod: AlgodConfig{
			Server: getEnvWithDefault("ALGOD_SERVER", "https://testnet-api.algonode.cloud"),
			Token:  getEnvWithDefault("ALGOD_TOKEN", ""),
			Port:   getEnvWithDefault("ALGOD_PORT", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section against its tags.
func (c *Config) Validate() error {
	for _, section := range []interface{}{c.App, c.Wallet, c.Storage, c.Algod} {
		if err := validation.Struct(section); err != nil {
			return err
		}
	}
	return nil
}

// Testnet reports whether wallets should use testnet encodings.
func (c *Config) Testnet() bool { return c.Wallet.Network == "testnet" }

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
