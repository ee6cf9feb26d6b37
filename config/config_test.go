package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultWithKeystore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	t.Setenv(EnvKeystorePass, "test-passphrase")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultTokenDecimals, cfg.TokenDecimals)
	require.Equal(t, filepath.Join(dir, "authority.keystore"), cfg.KeystorePath)
	_, err = os.Stat(cfg.KeystorePath)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.KeystorePath, again.KeystorePath)
	require.Equal(t, cfg.RPC.Address, again.RPC.Address)
}

func TestLoadParsesSectionsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `NetworkName = "claim-test"
ChainID = 7
DataDir = "./data"
TokenDecimals = 6

[rpc]
Address = "0.0.0.0:9000"
RateLimitPerSecond = 5.0
RateLimitBurst = 10

[logging]
Level = "debug"

[indexer]
Driver = "postgres"
DSN = "postgres://claim@localhost/claims"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	t.Setenv(EnvKeystorePass, "pw")
	t.Setenv(EnvRPCToken, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "claim-test", cfg.NetworkName)
	require.Equal(t, uint64(7), cfg.ChainID)
	require.Equal(t, uint8(6), cfg.TokenDecimals)
	require.Equal(t, "0.0.0.0:9000", cfg.RPC.Address)
	require.Equal(t, "from-env", cfg.RPC.AuthToken)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "postgres://claim@localhost/claims", cfg.IndexerDSN())
	require.Equal(t, filepath.Join("./data", "seen"), cfg.SeenStorePath())

	persisted, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(persisted), "from-env", "env secrets must not be written back")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("Bogus = 1\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Bogus"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	bad := Default()
	bad.TokenDecimals = 20
	require.Error(t, Validate(bad))

	bad = Default()
	bad.Indexer.Driver = "postgres"
	require.Error(t, Validate(bad))

	bad = Default()
	bad.Indexer.Driver = "mysql"
	require.Error(t, Validate(bad))

	bad = Default()
	bad.RPC.RateLimitBurst = 0
	require.Error(t, Validate(bad))

	bad = Default()
	bad.Webhook.URL = "https://hooks.example/claims"
	require.Error(t, Validate(bad))

	bad = Default()
	bad.Telemetry.SampleRatio = 2
	require.Error(t, Validate(bad))
}
