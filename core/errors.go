package core

import (
	"errors"

	txcheck "claimchain/core/tx"
	"claimchain/core/types"
	"claimchain/native/bank"
	"claimchain/native/claim"
	"claimchain/native/issuance"
)

// ErrorReason maps err to a stable label used for metrics and logs. A nil
// error maps to "ok".
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, claim.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, claim.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, claim.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, claim.ErrNotEnabled):
		return "not_enabled"
	case errors.Is(err, claim.ErrInvalidMintKey):
		return "invalid_mint"
	case errors.Is(err, claim.ErrNotSufficientAmount):
		return "insufficient_amount"
	case errors.Is(err, ErrNonceMismatch):
		return "nonce"
	case errors.Is(err, issuance.ErrAlreadyIssued):
		return "already_issued"
	case errors.Is(err, bank.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, txcheck.ErrInvalidChainID):
		return "chain_id"
	case errors.Is(err, types.ErrMissingSignature), errors.Is(err, types.ErrMissingAuthoritySignature):
		return "signature"
	default:
		return "error"
	}
}
