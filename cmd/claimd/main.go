package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"claimchain/config"
	"claimchain/core"
	"claimchain/core/events"
	"claimchain/indexer"
	"claimchain/integrations/webhooks"
	"claimchain/observability/logging"
	telemetry "claimchain/observability/otel"
	"claimchain/rpc"
	"claimchain/storage"
)

const serviceName = "claimd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configFile)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "claimd: %v\n", err)
		os.Exit(1)
	}
}

// run serves the ledger until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.SetupWithOptions(serviceName, cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Config{
		ChainID:  new(big.Int).SetUint64(cfg.ChainID),
		Decimals: cfg.TokenDecimals,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	node.SetLogger(logger)
	head := node.Head()
	logger.Info("ledger opened",
		slog.String("network", cfg.NetworkName),
		slog.Uint64("height", head.Height),
		slog.String("root", node.StateRoot().Hex()))

	var (
		emitters events.Fanout
		idx      *indexer.Indexer
	)
	if driver := strings.TrimSpace(cfg.Indexer.Driver); driver != "" {
		gormDB, err := indexer.Open(driver, cfg.IndexerDSN())
		if err != nil {
			return fmt.Errorf("open indexer: %w", err)
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			defer sqlDB.Close()
		}
		idx = indexer.New(gormDB)
		idx.SetLogger(logger)
		emitters = append(emitters, idx)
		logger.Info("event indexer enabled",
			slog.String("driver", driver),
			logging.MaskField("dsn", cfg.IndexerDSN()))
	}

	broker := rpc.NewBroker()
	emitters = append(emitters, broker)

	if url := strings.TrimSpace(cfg.Webhook.URL); url != "" {
		dispatcher, err := webhooks.NewDispatcher(url, []byte(cfg.Webhook.Secret), webhooks.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("configure webhook: %w", err)
		}
		defer dispatcher.Close()
		emitters = append(emitters, dispatcher)
		logger.Info("claim webhook enabled", logging.MaskURL("url", url))
	}
	node.SetEmitter(emitters)

	server, err := rpc.NewServer(node, rpc.ServerConfig{
		AuthToken:          cfg.RPC.AuthToken,
		JWTSecret:          cfg.RPC.JWTSecret,
		JWTIssuer:          cfg.RPC.JWTIssuer,
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		SeenStorePath:      cfg.SeenStorePath(),
		ReadTimeout:        time.Duration(cfg.RPC.ReadTimeoutSecs) * time.Second,
		WriteTimeout:       time.Duration(cfg.RPC.WriteTimeoutSecs) * time.Second,
		Indexer:            idx,
		Broker:             broker,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("create rpc server: %w", err)
	}
	defer server.Close()

	if cfg.RPC.AuthToken == "" && cfg.RPC.JWTSecret == "" {
		logger.Warn("rpc credentials not configured; transaction submission is disabled",
			slog.String("env", config.EnvRPCToken))
	}

	if err := server.Serve(ctx, cfg.RPC.Address); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("shutdown complete", slog.Uint64("height", node.GetHeight()))
	return nil
}
