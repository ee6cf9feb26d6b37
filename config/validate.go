package config

import (
	"fmt"
	"strings"
)

// MaxTokenDecimals keeps 10^decimals within a uint64.
const MaxTokenDecimals = 19

func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("config: ChainID must be non-zero")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if cfg.TokenDecimals > MaxTokenDecimals {
		return fmt.Errorf("config: TokenDecimals %d exceeds %d", cfg.TokenDecimals, MaxTokenDecimals)
	}
	if strings.TrimSpace(cfg.RPC.Address) == "" {
		return fmt.Errorf("rpc: Address required")
	}
	if cfg.RPC.RateLimitPerSecond < 0 || cfg.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if cfg.RPC.RateLimitPerSecond > 0 && cfg.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("rpc: RateLimitBurst required when RateLimitPerSecond is set")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	if strings.TrimSpace(cfg.Webhook.URL) != "" && strings.TrimSpace(cfg.Webhook.Secret) == "" {
		return fmt.Errorf("webhook: Secret required when URL is set")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Indexer.Driver)) {
	case "", "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN required for postgres")
		}
	default:
		return fmt.Errorf("indexer: unsupported driver %q", cfg.Indexer.Driver)
	}
	return nil
}
