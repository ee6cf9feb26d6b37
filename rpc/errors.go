package rpc

import (
	"errors"
	"net/http"

	"claimchain/core"
	txcheck "claimchain/core/tx"
	"claimchain/core/types"
	"claimchain/native/bank"
	"claimchain/native/claim"
	"claimchain/native/issuance"
)

// Stable error codes for ledger rejections.
const (
	CodeNotAuthorized       = -32050
	CodeAlreadyInitialized  = -32051
	CodeNotInitialized      = -32052
	CodeNotEnabled          = -32053
	CodeInvalidMint         = -32054
	CodeNotSufficientAmount = -32055
	CodeInsufficientFunds   = -32056
)

// errorCode maps a node error to an HTTP status and JSON-RPC code.
func errorCode(err error) (int, int) {
	switch {
	case errors.Is(err, claim.ErrNotAuthorized):
		return http.StatusForbidden, CodeNotAuthorized
	case errors.Is(err, claim.ErrAlreadyInitialized), errors.Is(err, issuance.ErrAlreadyIssued):
		return http.StatusConflict, CodeAlreadyInitialized
	case errors.Is(err, claim.ErrNotInitialized):
		return http.StatusConflict, CodeNotInitialized
	case errors.Is(err, claim.ErrNotEnabled):
		return http.StatusConflict, CodeNotEnabled
	case errors.Is(err, claim.ErrInvalidMintKey):
		return http.StatusBadRequest, CodeInvalidMint
	case errors.Is(err, claim.ErrNotSufficientAmount):
		return http.StatusConflict, CodeNotSufficientAmount
	case errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusConflict, CodeInsufficientFunds
	case errors.Is(err, core.ErrNonceMismatch),
		errors.Is(err, core.ErrInvalidPayload),
		errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrUnknownToken),
		errors.Is(err, issuance.ErrInvalidParams),
		errors.Is(err, txcheck.ErrInvalidChainID),
		errors.Is(err, txcheck.ErrUnsupportedType),
		errors.Is(err, txcheck.ErrUnexpectedCosign),
		errors.Is(err, types.ErrMissingSignature),
		errors.Is(err, types.ErrMissingAuthoritySignature):
		return http.StatusBadRequest, codeInvalidParams
	default:
		return http.StatusInternalServerError, codeServerError
	}
}
