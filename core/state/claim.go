package state

import (
	"fmt"
)

var (
	// GlobalSeed derives the single configuration record and the program
	// signing address.
	GlobalSeed = []byte("global")
	// EntitlementSeedPrefix is prepended to the user address to derive the
	// per-user entitlement record.
	EntitlementSeedPrefix = []byte("claim_seed")
)

// ClaimGlobal is the persisted program configuration.
type ClaimGlobal struct {
	Initialized bool
	Authority   [20]byte
	IsEnabled   bool
	Mint        string
}

// ClaimEntitlement is the persisted per-user allocation.
type ClaimEntitlement struct {
	Owner  [20]byte
	Amount uint64
}

// EntitlementSeed returns the derivation seed for user's entitlement record.
func EntitlementSeed(user [20]byte) []byte {
	seed := make([]byte, len(EntitlementSeedPrefix)+len(user))
	copy(seed, EntitlementSeedPrefix)
	copy(seed[len(EntitlementSeedPrefix):], user[:])
	return seed
}

// ClaimGlobal loads the configuration record. The boolean reports whether it
// exists.
func (m *Manager) ClaimGlobal() (*ClaimGlobal, bool, error) {
	cfg := new(ClaimGlobal)
	ok, err := m.KVGet(GlobalSeed, cfg)
	if err != nil {
		return nil, false, fmt.Errorf("claim: load global: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return cfg, true, nil
}

// PutClaimGlobal persists the configuration record.
func (m *Manager) PutClaimGlobal(cfg *ClaimGlobal) error {
	if cfg == nil {
		return fmt.Errorf("claim: nil global config")
	}
	return m.KVPut(GlobalSeed, cfg)
}

// ClaimEntitlement loads the entitlement record of user.
func (m *Manager) ClaimEntitlement(user [20]byte) (*ClaimEntitlement, bool, error) {
	rec := new(ClaimEntitlement)
	ok, err := m.KVGet(EntitlementSeed(user), rec)
	if err != nil {
		return nil, false, fmt.Errorf("claim: load entitlement: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return rec, true, nil
}

// PutClaimEntitlement creates or overwrites the entitlement record of user.
func (m *Manager) PutClaimEntitlement(user [20]byte, rec *ClaimEntitlement) error {
	if rec == nil {
		return fmt.Errorf("claim: nil entitlement")
	}
	return m.KVPut(EntitlementSeed(user), rec)
}

// DeleteClaimEntitlement removes the entitlement record of user.
func (m *Manager) DeleteClaimEntitlement(user [20]byte) error {
	return m.KVDelete(EntitlementSeed(user))
}
