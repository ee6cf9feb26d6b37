package rpc

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"claimchain/core"
	"claimchain/core/types"
	"claimchain/crypto"
	"claimchain/storage"
)

const testAuthToken = "rpc-test-token"

type testAccount struct {
	key   *ecdsa.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newTestAccount(t testing.TB) *testAccount {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return &testAccount{key: key, addr: ethcrypto.PubkeyToAddress(key.PublicKey)}
}

func (a *testAccount) bech32() string {
	return crypto.FromArray(a.addr).String()
}

type testEnv struct {
	node   *core.Node
	server *Server
	http   *httptest.Server
}

func newTestEnv(t testing.TB, cfg ServerConfig) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, core.Config{})
	require.NoError(t, err)
	if cfg.AuthToken == "" && cfg.JWTSecret == "" {
		cfg.AuthToken = testAuthToken
	}
	srv, err := NewServer(node, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{node: node, server: srv, http: ts}
}

type rpcReply struct {
	Status int
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (e *testEnv) call(t testing.TB, token, method string, params ...interface{}) rpcReply {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		require.NoError(t, err)
		raw = append(raw, data)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: raw, ID: 1})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.http.URL+"/", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var reply rpcReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	reply.Status = resp.StatusCode
	return reply
}

func (e *testEnv) signedTx(t testing.TB, from, cosigner *testAccount, txType types.TxType, payload interface{}) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(e.node.ChainID(), txType, from.nonce, payload)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(from.key))
	if cosigner != nil {
		require.NoError(t, tx.CoSign(cosigner.key))
	}
	return tx
}

// send submits a transaction and advances the sender nonce on success.
func (e *testEnv) send(t testing.TB, from, cosigner *testAccount, txType types.TxType, payload interface{}) rpcReply {
	t.Helper()
	reply := e.call(t, testAuthToken, "claim_sendTransaction", e.signedTx(t, from, cosigner, txType, payload))
	if reply.Error == nil {
		from.nonce++
	}
	return reply
}

func (e *testEnv) mustSend(t testing.TB, from, cosigner *testAccount, txType types.TxType, payload interface{}) core.Receipt {
	t.Helper()
	reply := e.send(t, from, cosigner, txType, payload)
	require.Nil(t, reply.Error, "unexpected error: %+v", reply.Error)
	var receipt core.Receipt
	require.NoError(t, json.Unmarshal(reply.Result, &receipt))
	return receipt
}

func decodeResult[T any](t testing.TB, reply rpcReply) T {
	t.Helper()
	require.Nil(t, reply.Error, "unexpected error: %+v", reply.Error)
	var out T
	require.NoError(t, json.Unmarshal(reply.Result, &out))
	return out
}

func (e *testEnv) bootstrap(t testing.TB, deployer *testAccount, supply uint64) {
	t.Helper()
	e.mustSend(t, deployer, nil, types.TxTypeInitToken, types.InitTokenPayload{
		Name:        "Dawg",
		Symbol:      "DAWG",
		URI:         "https://example.org/dawg.json",
		TotalSupply: supply,
	})
	e.mustSend(t, deployer, nil, types.TxTypeInitialize, types.InitializePayload{Mint: "DAWG"})
}
