package types

import "math/big"

// DefaultChainID identifies the local claim ledger ("CLM" in ASCII).
const DefaultChainID = 0x434c4d

// ClaimChainID returns a fresh copy of the default chain identifier.
func ClaimChainID() *big.Int {
	return big.NewInt(DefaultChainID)
}

// IsValidChainID reports whether id matches expected. A nil expected value
// falls back to DefaultChainID.
func IsValidChainID(id, expected *big.Int) bool {
	if id == nil {
		return false
	}
	if expected == nil {
		expected = ClaimChainID()
	}
	return id.Cmp(expected) == 0
}
