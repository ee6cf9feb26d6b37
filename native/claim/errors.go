package claim

import "errors"

// Claim program failures. Every check runs before any state mutation, so a
// returned error always means no effect.
var (
	ErrNotAuthorized       = errors.New("claim: not authorized")
	ErrAlreadyInitialized  = errors.New("claim: already initialized")
	ErrNotInitialized      = errors.New("claim: not initialized")
	ErrNotEnabled          = errors.New("claim: claiming is not enabled")
	ErrInvalidMintKey      = errors.New("claim: invalid mint")
	ErrNotSufficientAmount = errors.New("claim: entitlement amount is zero")
)

var (
	errNilState    = errors.New("claim engine: state not configured")
	errNilTransfer = errors.New("claim engine: transfer capability not configured")
)
