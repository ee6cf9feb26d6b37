package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"claimchain/core/types"
	"claimchain/native/claim"
)

func TestClaimFlowOverRPC(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	deployer, user := newTestAccount(t), newTestAccount(t)
	env.bootstrap(t, deployer, 1_000)

	global := decodeResult[claim.GlobalView](t, env.call(t, "", "claim_getGlobal"))
	require.True(t, global.Initialized)
	require.Equal(t, deployer.bech32(), global.Authority)
	require.False(t, global.IsEnabled)
	require.Equal(t, "DAWG", global.Mint)

	env.mustSend(t, deployer, nil, types.TxTypeUpdateUserAmount, types.UpdateUserAmountPayload{User: user.bech32(), Amount: 4})
	ent := decodeResult[EntitlementResult](t, env.call(t, "", "claim_getEntitlement", user.bech32()))
	require.True(t, ent.Exists)
	require.Equal(t, uint64(4), ent.Amount)
	require.Equal(t, user.bech32(), ent.Owner)

	key := decodeResult[EntitlementKeyResult](t, env.call(t, "", "claim_entitlementKey", user.bech32()))
	require.Equal(t, ent.Key, key.Key)

	// Claiming while disabled is rejected and the hash released for retry.
	pending := env.signedTx(t, user, deployer, types.TxTypeClaimToken, types.ClaimTokenPayload{})
	reply := env.call(t, testAuthToken, "claim_sendTransaction", pending)
	require.NotNil(t, reply.Error)
	require.Equal(t, CodeNotEnabled, reply.Error.Code)

	env.mustSend(t, deployer, nil, types.TxTypeSetEnabled, types.SetEnabledPayload{Enabled: true})
	reply = env.call(t, testAuthToken, "claim_sendTransaction", pending)
	require.Nil(t, reply.Error, "retry after enabling: %+v", reply.Error)

	balance := decodeResult[BalanceResult](t, env.call(t, "", "claim_getBalance", user.bech32()))
	require.Equal(t, "400000", balance.Balance)
	require.Equal(t, "DAWG", balance.Symbol)

	reserve := decodeResult[ReserveResult](t, env.call(t, "", "claim_reserve"))
	require.Equal(t, "99600000", reserve.Balance)

	ent = decodeResult[EntitlementResult](t, env.call(t, "", "claim_getEntitlement", user.bech32()))
	require.False(t, ent.Exists)
	require.Equal(t, key.Key, ent.Key)

	token := decodeResult[TokenResult](t, env.call(t, "", "claim_getToken", "dawg"))
	require.Equal(t, uint8(5), token.Decimals)
	require.Empty(t, token.MintAuthority)
	require.Equal(t, "100000000", token.TotalSupply)

	issued := decodeResult[IssuanceResult](t, env.call(t, "", "claim_getIssuance"))
	require.True(t, issued.Issued)
	require.Equal(t, deployer.bech32(), issued.Payer)

	nonce := decodeResult[NonceResult](t, env.call(t, "", "claim_getNonce", deployer.bech32()))
	require.Equal(t, deployer.nonce, nonce.Nonce)
}

func TestErrorCodes(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	deployer, user, stranger := newTestAccount(t), newTestAccount(t), newTestAccount(t)

	reply := env.send(t, deployer, nil, types.TxTypeSetEnabled, types.SetEnabledPayload{Enabled: true})
	require.Equal(t, CodeNotInitialized, reply.Error.Code)

	env.bootstrap(t, deployer, 10)

	reply = env.send(t, deployer, nil, types.TxTypeInitialize, types.InitializePayload{Mint: "DAWG"})
	require.Equal(t, CodeAlreadyInitialized, reply.Error.Code)

	reply = env.send(t, stranger, nil, types.TxTypeSetEnabled, types.SetEnabledPayload{Enabled: true})
	require.Equal(t, CodeNotAuthorized, reply.Error.Code)
	require.Equal(t, http.StatusForbidden, reply.Status)

	env.mustSend(t, deployer, nil, types.TxTypeSetEnabled, types.SetEnabledPayload{Enabled: true})
	env.mustSend(t, deployer, nil, types.TxTypeUpdateUserAmount, types.UpdateUserAmountPayload{User: user.bech32(), Amount: 0})

	reply = env.send(t, user, deployer, types.TxTypeClaimToken, types.ClaimTokenPayload{Mint: "OTHER"})
	require.Equal(t, CodeInvalidMint, reply.Error.Code)

	reply = env.send(t, user, deployer, types.TxTypeClaimToken, types.ClaimTokenPayload{})
	require.Equal(t, CodeNotSufficientAmount, reply.Error.Code)

	reply = env.send(t, stranger, nil, types.TxTypeTransfer, types.TransferPayload{To: user.bech32(), Symbol: "DAWG", Amount: "1"})
	require.Equal(t, CodeInsufficientFunds, reply.Error.Code)

	reply = env.call(t, "", "claim_unknown")
	require.Equal(t, codeMethodNotFound, reply.Error.Code)
}

func TestSendTransactionRequiresAuth(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	deployer := newTestAccount(t)
	tx := env.signedTx(t, deployer, nil, types.TxTypeInitialize, types.InitializePayload{Mint: "DAWG"})

	reply := env.call(t, "", "claim_sendTransaction", tx)
	require.Equal(t, codeUnauthorized, reply.Error.Code)
	require.Equal(t, http.StatusUnauthorized, reply.Status)

	reply = env.call(t, "wrong", "claim_sendTransaction", tx)
	require.Equal(t, codeUnauthorized, reply.Error.Code)
}

func TestSendTransactionAcceptsJWT(t *testing.T) {
	secret := "jwt-secret"
	env := newTestEnv(t, ServerConfig{JWTSecret: secret, JWTIssuer: "claim-ops"})
	deployer := newTestAccount(t)

	sign := func(issuer string, exp time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss": issuer,
			"exp": exp.Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	tx := env.signedTx(t, deployer, nil, types.TxTypeInitToken, types.InitTokenPayload{Name: "Dawg", Symbol: "DAWG", TotalSupply: 1})
	reply := env.call(t, sign("someone-else", time.Now().Add(time.Hour)), "claim_sendTransaction", tx)
	require.Equal(t, codeUnauthorized, reply.Error.Code)

	reply = env.call(t, sign("claim-ops", time.Now().Add(-time.Hour)), "claim_sendTransaction", tx)
	require.Equal(t, codeUnauthorized, reply.Error.Code)

	reply = env.call(t, sign("claim-ops", time.Now().Add(time.Hour)), "claim_sendTransaction", tx)
	require.Nil(t, reply.Error)
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	deployer := newTestAccount(t)
	tx := env.signedTx(t, deployer, nil, types.TxTypeInitToken, types.InitTokenPayload{Name: "Dawg", Symbol: "DAWG", TotalSupply: 1})

	reply := env.call(t, testAuthToken, "claim_sendTransaction", tx)
	require.Nil(t, reply.Error)
	reply = env.call(t, testAuthToken, "claim_sendTransaction", tx)
	require.Equal(t, codeDuplicateTx, reply.Error.Code)
	require.Equal(t, http.StatusConflict, reply.Status)
}

func TestSubmissionRateLimited(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimitPerSecond: 0.001, RateLimitBurst: 1})
	deployer := newTestAccount(t)

	env.mustSend(t, deployer, nil, types.TxTypeInitToken, types.InitTokenPayload{Name: "Dawg", Symbol: "DAWG", TotalSupply: 1})
	reply := env.send(t, deployer, nil, types.TxTypeInitialize, types.InitializePayload{Mint: "DAWG"})
	require.Equal(t, codeRateLimited, reply.Error.Code)
	require.Equal(t, http.StatusTooManyRequests, reply.Status)

	// Reads are not limited.
	reply = env.call(t, "", "claim_getGlobal")
	require.Nil(t, reply.Error)
}

func TestReceiptLookup(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	deployer := newTestAccount(t)
	receipt := env.mustSend(t, deployer, nil, types.TxTypeInitToken, types.InitTokenPayload{Name: "Dawg", Symbol: "DAWG", TotalSupply: 1})

	got := decodeResult[map[string]interface{}](t, env.call(t, "", "claim_getReceipt", receipt.TxHash))
	require.Equal(t, receipt.TxHash, got["txHash"])

	reply := env.call(t, "", "claim_getReceipt", strings.Repeat("00", 32))
	require.Equal(t, codeInvalidParams, reply.Error.Code)
}

func TestListEventsDisabledWithoutIndexer(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	reply := env.call(t, "", "claim_listEvents")
	require.Equal(t, codeServerError, reply.Error.Code)
	require.Equal(t, http.StatusServiceUnavailable, reply.Status)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	resp, err := env.http.Client().Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	require.Equal(t, "ok", health["status"])

	env.call(t, "", "claim_getGlobal")
	resp, err = env.http.Client().Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), "claimchain_rpc_requests_total")
}

func TestMalformedRequests(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	resp, err := env.http.Client().Post(env.http.URL+"/", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	var reply rpcReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	resp.Body.Close()
	require.Equal(t, codeParseError, reply.Error.Code)

	reply = env.call(t, "", "claim_getEntitlement", "not-an-address")
	require.Equal(t, codeInvalidParams, reply.Error.Code)
}
