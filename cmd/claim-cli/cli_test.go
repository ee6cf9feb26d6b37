package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"claimchain/config"
	"claimchain/core"
	"claimchain/core/events"
	"claimchain/crypto"
	"claimchain/indexer"
	"claimchain/native/claim"
	"claimchain/rpc"
	"claimchain/storage"
)

const (
	testToken = "cli-test-token"
	testPass  = "correct horse"
)

type cliEnv struct {
	url   string
	index *indexer.Indexer
	dsn   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, core.Config{})
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := indexer.Open(indexer.DriverSQLite, dsn)
	require.NoError(t, err)
	idx := indexer.New(gormDB)
	node.SetEmitter(events.Fanout{idx})

	srv, err := rpc.NewServer(node, rpc.ServerConfig{AuthToken: testToken, Indexer: idx})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &cliEnv{url: ts.URL, index: idx, dsn: dsn}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvKeystorePass, testPass)
	t.Setenv(envAuthorityPass, testPass)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--rpc", e.url, "--token", testToken}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func newKeystore(t *testing.T, dir, name string) (string, string) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, crypto.SaveToKeystore(path, key, testPass))
	return path, key.PubKey().Address().String()
}

func TestClaimFlowThroughCLI(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()
	authorityPath, authorityAddr := newKeystore(t, dir, "authority.keystore")
	userPath, userAddr := newKeystore(t, dir, "user.keystore")

	require.Equal(t, userAddr+"\n", env.mustRun(t, "address", userPath))

	env.mustRun(t, "--key", authorityPath, "init-token", "--name", "Dawg", "--symbol", "DAWG", "--supply", "1000")
	env.mustRun(t, "--key", authorityPath, "initialize", "--mint", "DAWG")

	var global claim.GlobalView
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "global")), &global))
	require.Equal(t, authorityAddr, global.Authority)
	require.False(t, global.IsEnabled)

	allocPath := filepath.Join(dir, "alloc.yaml")
	require.NoError(t, os.WriteFile(allocPath, []byte("allocations:\n  - user: "+userAddr+"\n    amount: 4\n"), 0o600))
	out := env.mustRun(t, "--key", authorityPath, "load-allocations", allocPath)
	require.Contains(t, out, "loaded 1 allocations")

	// Claims are rejected until the authority opens claiming.
	_, err := env.run(t, "--key", userPath, "claim", "--authority-key", authorityPath)
	require.ErrorContains(t, err, "-32053")

	env.mustRun(t, "--key", authorityPath, "set-enabled", "true")
	env.mustRun(t, "--key", userPath, "claim", "--authority-key", authorityPath, "--mint", "DAWG")

	var balance rpc.BalanceResult
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "balance", userAddr)), &balance))
	require.Equal(t, "400000", balance.Balance)

	var ent rpc.EntitlementResult
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "entitlement", userAddr)), &ent))
	require.False(t, ent.Exists)

	// A second claim finds no entitlement.
	_, err = env.run(t, "--key", userPath, "claim", "--authority-key", authorityPath)
	require.Error(t, err)

	env.mustRun(t, "--key", userPath, "transfer", authorityAddr, "150000")
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "balance", userAddr)), &balance))
	require.Equal(t, "250000", balance.Balance)

	csvOut := env.mustRun(t, "export", "--dsn", env.dsn, "--format", "csv")
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], userAddr)

	parquetPath := filepath.Join(dir, "claims.parquet")
	env.mustRun(t, "export", "--dsn", env.dsn, "--format", "parquet", "--out", parquetPath)
	info, err := os.Stat(parquetPath)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestSigningCommandsRequireKey(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "set-enabled", "true")
	require.ErrorContains(t, err, "--key")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "export", "--dsn", env.dsn, "--format", "xml")
	require.ErrorContains(t, err, "unsupported format")
}
