package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"

	"claimchain/config"
)

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.KeystorePath = filepath.Join(dir, "authority.keystore")
	cfg.RPC.Address = "127.0.0.1:0"
	cfg.RPC.AuthToken = "daemon-test-token"
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "config.toml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, toml.NewEncoder(f).Encode(cfg))
	require.NoError(t, f.Close())
	return path
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Setenv(config.EnvKeystorePass, "daemon-pass")
	path := writeConfig(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}

	// The ledger and indexer live under DataDir.
	cfg, err := config.Load(path)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.DataDir, "ledger"))
	require.NoError(t, err)
	_, err = os.Stat(cfg.IndexerDSN())
	require.NoError(t, err)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv(config.EnvKeystorePass, "daemon-pass")
	path := writeConfig(t, func(cfg *config.Config) {
		cfg.Indexer.Driver = "mysql"
	})
	err := run(context.Background(), path)
	require.ErrorContains(t, err, "load config")
}
