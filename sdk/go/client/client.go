package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"claimchain/core"
	"claimchain/core/types"
	"claimchain/crypto"
	"claimchain/native/claim"
	"claimchain/rpc"
)

const (
	jsonRPCVersion = "2.0"
	defaultRPCID   = 1
)

// Client wraps a JSON-RPC endpoint and exposes helpers for building, signing
// and submitting claim transactions.
type Client struct {
	endpoint   string
	httpClient *http.Client
	authToken  string
	chainID    *big.Int
}

// Option configures the high-level client defaults.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for RPC calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuthToken sets the bearer token attached to transaction submissions.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// WithChainID overrides the chain identifier embedded in constructed transactions.
func WithChainID(chainID *big.Int) Option {
	return func(c *Client) {
		if chainID != nil {
			c.chainID = new(big.Int).Set(chainID)
		}
	}
}

// New initialises a client bound to the provided JSON-RPC endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("client: endpoint required")
	}
	c := &Client{
		endpoint:   trimmed,
		httpClient: http.DefaultClient,
		chainID:    types.ClaimChainID(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.chainID == nil {
		c.chainID = types.ClaimChainID()
	}
	return c, nil
}

// Error is a JSON-RPC error returned by the node.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("client: rpc error %d: %s", e.Code, e.Message)
}

// Build creates and signs a transaction from key, fetching the sender nonce
// from the node. A non-nil cosigner adds the authority co-signature.
func (c *Client) Build(ctx context.Context, key, cosigner *crypto.PrivateKey, txType types.TxType, payload interface{}) (*types.Transaction, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, fmt.Errorf("client: signing key required")
	}
	nonce, err := c.Nonce(ctx, key.PubKey().Address().String())
	if err != nil {
		return nil, err
	}
	tx, err := types.NewTransaction(c.chainID, txType, nonce, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("client: sign transaction: %w", err)
	}
	if cosigner != nil {
		if err := tx.CoSign(cosigner.PrivateKey); err != nil {
			return nil, fmt.Errorf("client: co-sign transaction: %w", err)
		}
	}
	return tx, nil
}

// Send submits a signed transaction and returns its receipt.
func (c *Client) Send(ctx context.Context, tx *types.Transaction) (*core.Receipt, error) {
	var receipt core.Receipt
	if err := c.call(ctx, "claim_sendTransaction", []interface{}{tx}, true, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Submit builds, signs and sends a transaction in one step.
func (c *Client) Submit(ctx context.Context, key, cosigner *crypto.PrivateKey, txType types.TxType, payload interface{}) (*core.Receipt, error) {
	tx, err := c.Build(ctx, key, cosigner, txType, payload)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, tx)
}

// InitToken issues the token. It succeeds once per ledger.
func (c *Client) InitToken(ctx context.Context, payer *crypto.PrivateKey, payload types.InitTokenPayload) (*core.Receipt, error) {
	return c.Submit(ctx, payer, nil, types.TxTypeInitToken, payload)
}

// Initialize creates the claim configuration with the signer as authority.
func (c *Client) Initialize(ctx context.Context, authority *crypto.PrivateKey, mint string) (*core.Receipt, error) {
	return c.Submit(ctx, authority, nil, types.TxTypeInitialize, types.InitializePayload{Mint: mint})
}

// SetEnabled toggles claiming.
func (c *Client) SetEnabled(ctx context.Context, authority *crypto.PrivateKey, enabled bool) (*core.Receipt, error) {
	return c.Submit(ctx, authority, nil, types.TxTypeSetEnabled, types.SetEnabledPayload{Enabled: enabled})
}

// UpdateUserAmount sets user's entitlement to amount.
func (c *Client) UpdateUserAmount(ctx context.Context, authority *crypto.PrivateKey, user string, amount uint64) (*core.Receipt, error) {
	return c.Submit(ctx, authority, nil, types.TxTypeUpdateUserAmount, types.UpdateUserAmountPayload{User: user, Amount: amount})
}

// ClaimToken withdraws the user's entitlement. The authority co-signs.
func (c *Client) ClaimToken(ctx context.Context, user, authority *crypto.PrivateKey, mint string) (*core.Receipt, error) {
	if authority == nil {
		return nil, fmt.Errorf("client: authority key required to co-sign claims")
	}
	return c.Submit(ctx, user, authority, types.TxTypeClaimToken, types.ClaimTokenPayload{Mint: mint})
}

// Transfer moves amount base units of symbol to the recipient.
func (c *Client) Transfer(ctx context.Context, from *crypto.PrivateKey, to, symbol string, amount *big.Int) (*core.Receipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("client: amount must be greater than zero")
	}
	return c.Submit(ctx, from, nil, types.TxTypeTransfer, types.TransferPayload{To: to, Symbol: symbol, Amount: amount.String()})
}

// Receipt returns the receipt of a committed transaction.
func (c *Client) Receipt(ctx context.Context, txHash string) (*core.Receipt, error) {
	var receipt core.Receipt
	if err := c.call(ctx, "claim_getReceipt", []interface{}{txHash}, false, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Issuance reports whether and how the token was issued.
func (c *Client) Issuance(ctx context.Context) (*rpc.IssuanceResult, error) {
	var resp rpc.IssuanceResult
	if err := c.call(ctx, "claim_getIssuance", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Nonce returns the next nonce address must use.
func (c *Client) Nonce(ctx context.Context, address string) (uint64, error) {
	var resp rpc.NonceResult
	if err := c.call(ctx, "claim_getNonce", []interface{}{address}, false, &resp); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// Global returns the claim configuration.
func (c *Client) Global(ctx context.Context) (*claim.GlobalView, error) {
	var resp claim.GlobalView
	if err := c.call(ctx, "claim_getGlobal", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Entitlement returns the entitlement stored for user.
func (c *Client) Entitlement(ctx context.Context, user string) (*rpc.EntitlementResult, error) {
	var resp rpc.EntitlementResult
	if err := c.call(ctx, "claim_getEntitlement", []interface{}{user}, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EntitlementKey returns the state key of user's entitlement.
func (c *Client) EntitlementKey(ctx context.Context, user string) (string, error) {
	var resp rpc.EntitlementKeyResult
	if err := c.call(ctx, "claim_entitlementKey", []interface{}{user}, false, &resp); err != nil {
		return "", err
	}
	return resp.Key, nil
}

// Balance returns the balance of address. An empty symbol selects the claim
// mint.
func (c *Client) Balance(ctx context.Context, address, symbol string) (*rpc.BalanceResult, error) {
	params := []interface{}{address}
	if strings.TrimSpace(symbol) != "" {
		params = append(params, symbol)
	}
	var resp rpc.BalanceResult
	if err := c.call(ctx, "claim_getBalance", params, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Token returns token metadata.
func (c *Client) Token(ctx context.Context, symbol string) (*rpc.TokenResult, error) {
	var resp rpc.TokenResult
	if err := c.call(ctx, "claim_getToken", []interface{}{symbol}, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reserve returns the account claims are paid from.
func (c *Client) Reserve(ctx context.Context) (*rpc.ReserveResult, error) {
	var resp rpc.ReserveResult
	if err := c.call(ctx, "claim_reserve", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Type       string `json:"type,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	FromHeight uint64 `json:"fromHeight,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ListEvents returns indexed events.
func (c *Client) ListEvents(ctx context.Context, filter EventFilter) ([]types.Event, error) {
	var resp []types.Event
	if err := c.call(ctx, "claim_listEvents", []interface{}{filter}, false, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc,omitempty"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, requireAuth bool, out interface{}) error {
	if requireAuth && strings.TrimSpace(c.authToken) == "" {
		return fmt.Errorf("client: auth token required for %s", method)
	}
	if params == nil {
		params = []interface{}{}
	}
	payload := rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      defaultRPCID,
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: encode rpc payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: rpc call failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("client: read rpc response: %w", err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("client: rpc error status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return fmt.Errorf("client: decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("client: decode rpc result: %w", err)
	}
	return nil
}
