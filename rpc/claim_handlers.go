package rpc

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"claimchain/core/types"
	"claimchain/crypto"
	"claimchain/indexer"
	"claimchain/native/claim"
	"claimchain/observability"
)

// EntitlementResult reports a user's claim record. Exists is false when no
// record is stored, and the view then carries only the derived key.
type EntitlementResult struct {
	User   string `json:"user"`
	Exists bool   `json:"exists"`
	claim.EntitlementView
}

// EntitlementKeyResult is the derived storage key of a user's claim record.
type EntitlementKeyResult struct {
	User string `json:"user"`
	Key  string `json:"key"`
}

// BalanceResult is an account's balance of one token in base units.
type BalanceResult struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Balance string `json:"balance"`
}

// TokenResult describes a registered token and its current supply.
type TokenResult struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	URI           string `json:"uri"`
	Decimals      uint8  `json:"decimals"`
	MintAuthority string `json:"mintAuthority,omitempty"`
	TotalSupply   string `json:"totalSupply"`
}

// IssuanceResult reports whether the one-time issuance has run and its parameters.
type IssuanceResult struct {
	Issued      bool   `json:"issued"`
	Symbol      string `json:"symbol,omitempty"`
	Payer       string `json:"payer,omitempty"`
	Destination string `json:"destination,omitempty"`
	TotalSupply uint64 `json:"totalSupply,omitempty"`
}

// NonceResult is the nonce the next transaction from Address must carry.
type NonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

// ReserveResult is the claim program's reserve account and its balance.
type ReserveResult struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Balance string `json:"balance"`
}

type listEventsParams struct {
	Type       string `json:"type,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	FromHeight uint64 `json:"fromHeight,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "transaction parameter required", nil)
		return
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction format", err.Error())
		return
	}

	now := time.Now()
	source := clientSource(r)
	if !s.limiter.allow(source, now) {
		observability.ModuleMetrics().RecordThrottle(metricsModule, "rate_limit")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "transaction rate limit exceeded", source)
		return
	}

	hashBytes, err := tx.Hash()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to hash transaction", err.Error())
		return
	}
	hash := hex.EncodeToString(hashBytes)
	fresh, err := s.seen.remember(hash, now, txSeenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to record transaction", err.Error())
		return
	}
	if !fresh {
		observability.ModuleMetrics().RecordThrottle(metricsModule, "duplicate")
		writeError(w, http.StatusConflict, req.ID, codeDuplicateTx, "transaction has already been submitted", hash)
		return
	}

	receipt, err := s.node.SubmitTransaction(r.Context(), &tx)
	if err != nil {
		if forgetErr := s.seen.forget(hash); forgetErr != nil {
			s.logger.Warn("release rejected tx hash", slog.String("txHash", hash), slog.String("error", forgetErr.Error()))
		}
		status, code := errorCode(err)
		writeError(w, status, req.ID, code, err.Error(), hash)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var hashStr string
	if !decodeSingleParam(w, req, &hashStr, "transaction hash parameter required") {
		return
	}
	hash, err := types.ParseTxHash(hashStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction hash", err.Error())
		return
	}
	receipt, ok, err := s.node.Receipt(hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load receipt", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "receipt not found", hashStr)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleGetGlobal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	cfg, err := s.node.ClaimGlobal()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load claim config", err.Error())
		return
	}
	writeResult(w, req.ID, claim.NewGlobalView(cfg))
}

func (s *Server) handleGetEntitlement(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.decodeAddressParam(w, req)
	if !ok {
		return
	}
	rec, exists, err := s.node.ClaimEntitlement(addr.Array())
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load entitlement", err.Error())
		return
	}
	result := EntitlementResult{User: addr.String(), Exists: exists}
	if exists {
		result.EntitlementView = claim.NewEntitlementView(addr.Array(), rec)
	} else {
		result.Key = claim.EntitlementKey(addr.Array()).Hex()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleEntitlementKey(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.decodeAddressParam(w, req)
	if !ok {
		return
	}
	writeResult(w, req.ID, EntitlementKeyResult{
		User: addr.String(),
		Key:  claim.EntitlementKey(addr.Array()).Hex(),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.decodeAddressParam(w, req)
	if !ok {
		return
	}
	symbol := ""
	if len(req.Params) > 1 {
		if err := json.Unmarshal(req.Params[1], &symbol); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid symbol parameter", err.Error())
			return
		}
	}
	if strings.TrimSpace(symbol) == "" {
		cfg, err := s.node.ClaimGlobal()
		if err != nil {
			writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load claim config", err.Error())
			return
		}
		if cfg == nil || cfg.Mint == "" {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "symbol required before initialization", nil)
			return
		}
		symbol = cfg.Mint
	}
	balance, err := s.node.Balance(addr.Array(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load balance", err.Error())
		return
	}
	writeResult(w, req.ID, BalanceResult{
		Address: addr.String(),
		Symbol:  strings.ToUpper(strings.TrimSpace(symbol)),
		Balance: balance.String(),
	})
}

func (s *Server) handleGetToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var symbol string
	if !decodeSingleParam(w, req, &symbol, "symbol parameter required") {
		return
	}
	meta, supply, err := s.node.Token(symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load token", err.Error())
		return
	}
	if meta == nil {
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "unknown token", symbol)
		return
	}
	result := TokenResult{
		Symbol:      meta.Symbol,
		Name:        meta.Name,
		URI:         meta.URI,
		Decimals:    meta.Decimals,
		TotalSupply: supply.String(),
	}
	if authority, err := crypto.AddressFromBytes(meta.MintAuthority); err == nil {
		result.MintAuthority = authority.String()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetIssuance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	record, ok, err := s.node.Issuance()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load issuance", err.Error())
		return
	}
	if !ok {
		writeResult(w, req.ID, IssuanceResult{})
		return
	}
	writeResult(w, req.ID, IssuanceResult{
		Issued:      true,
		Symbol:      record.Symbol,
		Payer:       crypto.FromArray(record.Payer).String(),
		Destination: crypto.FromArray(record.Destination).String(),
		TotalSupply: record.TotalSupply,
	})
}

func (s *Server) handleGetNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.decodeAddressParam(w, req)
	if !ok {
		return
	}
	nonce, err := s.node.Nonce(addr.Array())
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load nonce", err.Error())
		return
	}
	writeResult(w, req.ID, NonceResult{Address: addr.String(), Nonce: nonce})
}

func (s *Server) handleReserve(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	info, err := s.node.Reserve()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load reserve", err.Error())
		return
	}
	writeResult(w, req.ID, ReserveResult{
		Address: crypto.FromArray(info.Address).String(),
		Symbol:  info.Symbol,
		Balance: info.Balance.String(),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event indexer disabled", nil)
		return
	}
	var params listEventsParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid filter parameter", err.Error())
			return
		}
	}
	list, err := s.index.ListEvents(indexer.Filter{
		Type:       params.Type,
		TxHash:     params.TxHash,
		FromHeight: params.FromHeight,
		Limit:      params.Limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to list events", err.Error())
		return
	}
	writeResult(w, req.ID, list)
}

func decodeSingleParam(w http.ResponseWriter, req *RPCRequest, out interface{}, missing string) bool {
	if len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, missing, nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter", err.Error())
		return false
	}
	return true
}

func (s *Server) decodeAddressParam(w http.ResponseWriter, req *RPCRequest) (crypto.Address, bool) {
	var addrStr string
	if !decodeSingleParam(w, req, &addrStr, "address parameter required") {
		return crypto.Address{}, false
	}
	addr, err := crypto.DecodeAddress(addrStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode address", err.Error())
		return crypto.Address{}, false
	}
	return addr, true
}
