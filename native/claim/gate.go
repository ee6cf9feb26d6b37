package claim

import (
	"strings"

	"claimchain/core/state"
)

func checkInitialized(cfg *state.ClaimGlobal) error {
	if cfg == nil || !cfg.Initialized {
		return ErrNotInitialized
	}
	return nil
}

func checkNotAlreadyInitialized(cfg *state.ClaimGlobal) error {
	if cfg != nil && cfg.Initialized {
		return ErrAlreadyInitialized
	}
	return nil
}

func checkAuthority(cfg *state.ClaimGlobal, caller [20]byte) error {
	if cfg.Authority != caller {
		return ErrNotAuthorized
	}
	return nil
}

func checkEnabled(cfg *state.ClaimGlobal) error {
	if !cfg.IsEnabled {
		return ErrNotEnabled
	}
	return nil
}

// checkMint accepts an empty request since callers may omit the mint.
func checkMint(cfg *state.ClaimGlobal, requested string) error {
	normalized := normalizeMint(requested)
	if normalized == "" {
		return nil
	}
	if normalized != cfg.Mint {
		return ErrInvalidMintKey
	}
	return nil
}

func checkRecordOwner(rec *state.ClaimEntitlement, caller [20]byte) error {
	if rec == nil || rec.Owner != caller {
		return ErrNotAuthorized
	}
	return nil
}

func checkSufficientAmount(rec *state.ClaimEntitlement) error {
	if rec.Amount == 0 {
		return ErrNotSufficientAmount
	}
	return nil
}

func normalizeMint(mint string) string {
	return strings.ToUpper(strings.TrimSpace(mint))
}
