package claim

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"claimchain/core/state"
)

// GlobalKey returns the state key of the configuration record.
func GlobalKey() common.Hash {
	return common.BytesToHash(ethcrypto.Keccak256(state.GlobalSeed))
}

// EntitlementKey returns the state key of user's entitlement record. Any
// caller can compute it from the user address alone.
func EntitlementKey(user [20]byte) common.Hash {
	return common.BytesToHash(ethcrypto.Keccak256(state.EntitlementSeed(user)))
}

// ProgramSigner returns the address the program signs reserve debits with.
// No private key exists for it.
func ProgramSigner() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256(state.GlobalSeed)[12:])
	return addr
}
