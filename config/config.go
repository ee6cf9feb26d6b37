package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"claimchain/core/types"
	"claimchain/crypto"
)

const (
	// EnvRPCToken overrides RPC.AuthToken.
	EnvRPCToken = "CLAIM_RPC_TOKEN"
	// EnvJWTSecret overrides RPC.JWTSecret.
	EnvJWTSecret = "CLAIM_JWT_SECRET"
	// EnvWebhookSecret overrides Webhook.Secret.
	EnvWebhookSecret = "CLAIM_WEBHOOK_SECRET"
	// EnvKeystorePass supplies the keystore passphrase.
	EnvKeystorePass = "CLAIM_KEYSTORE_PASS"

	defaultTokenDecimals uint8 = 5
)

type Config struct {
	NetworkName   string    `toml:"NetworkName"`
	Environment   string    `toml:"Environment"`
	ChainID       uint64    `toml:"ChainID"`
	DataDir       string    `toml:"DataDir"`
	KeystorePath  string    `toml:"KeystorePath"`
	TokenDecimals uint8     `toml:"TokenDecimals"`
	RPC           RPC       `toml:"rpc"`
	Logging       Logging   `toml:"logging"`
	Telemetry     Telemetry `toml:"telemetry"`
	Indexer       Indexer   `toml:"indexer"`
	Webhook       Webhook   `toml:"webhook"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		NetworkName:   "claim-local",
		Environment:   "dev",
		ChainID:       types.DefaultChainID,
		DataDir:       "./claim-data",
		TokenDecimals: defaultTokenDecimals,
		RPC: RPC{
			Address:            "127.0.0.1:8645",
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			ReadTimeoutSecs:    15,
			WriteTimeoutSecs:   15,
		},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Telemetry: Telemetry{SampleRatio: 1},
		Indexer: Indexer{
			Driver: "sqlite",
			DSN:    "",
		},
	}
}

// Load loads the configuration from the given path. A missing file is
// replaced by the default configuration together with a fresh keystore.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SeenStorePath resolves the RPC duplicate-submission store location.
func (c *Config) SeenStorePath() string {
	if strings.TrimSpace(c.RPC.SeenStorePath) != "" {
		return c.RPC.SeenStorePath
	}
	return filepath.Join(c.DataDir, "seen")
}

// IndexerDSN resolves the indexer connection string. SQLite defaults to a
// file under DataDir.
func (c *Config) IndexerDSN() string {
	if strings.TrimSpace(c.Indexer.DSN) != "" {
		return c.Indexer.DSN
	}
	if strings.EqualFold(c.Indexer.Driver, "sqlite") {
		return filepath.Join(c.DataDir, "index.db")
	}
	return ""
}

func applyEnv(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv(EnvRPCToken)); token != "" {
		cfg.RPC.AuthToken = token
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.RPC.JWTSecret = secret
	}
	if secret := strings.TrimSpace(os.Getenv(EnvWebhookSecret)); secret != "" {
		cfg.Webhook.Secret = secret
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}
	if _, err := crypto.EnsureKeystore(keystorePath, os.Getenv(EnvKeystorePass)); err != nil {
		return err
	}
	if cfg.KeystorePath != keystorePath {
		cfg.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.KeystorePath = defaultKeystorePath(path)
	if _, err := crypto.EnsureKeystore(cfg.KeystorePath, os.Getenv(EnvKeystorePass)); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "authority.keystore")
}
