package claim

import (
	"claimchain/core/state"
	"claimchain/crypto"
)

// GlobalView is the read model of the configuration record.
type GlobalView struct {
	Initialized bool   `json:"initialized"`
	Authority   string `json:"authority,omitempty"`
	IsEnabled   bool   `json:"isEnabled"`
	Mint        string `json:"mint,omitempty"`
}

// EntitlementView is the read model of an entitlement record.
type EntitlementView struct {
	Key    string `json:"key"`
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

// NewGlobalView renders cfg. A nil config renders as uninitialized.
func NewGlobalView(cfg *state.ClaimGlobal) GlobalView {
	if cfg == nil || !cfg.Initialized {
		return GlobalView{}
	}
	return GlobalView{
		Initialized: true,
		Authority:   crypto.FromArray(cfg.Authority).String(),
		IsEnabled:   cfg.IsEnabled,
		Mint:        cfg.Mint,
	}
}

// NewEntitlementView renders rec stored for user.
func NewEntitlementView(user [20]byte, rec *state.ClaimEntitlement) EntitlementView {
	return EntitlementView{
		Key:    EntitlementKey(user).Hex(),
		Owner:  crypto.FromArray(rec.Owner).String(),
		Amount: rec.Amount,
	}
}
