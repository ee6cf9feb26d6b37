package events

import (
	"math/big"
	"strconv"

	"claimchain/core/types"
)

const (
	TypeClaimInitialized   = "claim.initialized"
	TypeClaimEnabledSet    = "claim.enabled.set"
	TypeEntitlementUpdated = "claim.entitlement.updated"
	TypeTokenClaimed       = "claim.token.claimed"
)

type ClaimInitialized struct {
	Authority [20]byte
	Mint      string
}

func (ClaimInitialized) EventType() string { return TypeClaimInitialized }

func (e ClaimInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeClaimInitialized,
		Attributes: map[string]string{
			"authority": formatAddr(e.Authority),
			"mint":      normalizeAsset(e.Mint),
		},
	}
}

type ClaimEnabledSet struct {
	Authority [20]byte
	Enabled   bool
}

func (ClaimEnabledSet) EventType() string { return TypeClaimEnabledSet }

func (e ClaimEnabledSet) Event() *types.Event {
	return &types.Event{
		Type: TypeClaimEnabledSet,
		Attributes: map[string]string{
			"authority": formatAddr(e.Authority),
			"enabled":   strconv.FormatBool(e.Enabled),
		},
	}
}

type EntitlementUpdated struct {
	Authority [20]byte
	User      [20]byte
	Amount    uint64
	Created   bool
}

func (EntitlementUpdated) EventType() string { return TypeEntitlementUpdated }

func (e EntitlementUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeEntitlementUpdated,
		Attributes: map[string]string{
			"authority": formatAddr(e.Authority),
			"user":      formatAddr(e.User),
			"amount":    formatUint(e.Amount),
			"created":   strconv.FormatBool(e.Created),
		},
	}
}

// TokenClaimed records a successful claim. Destination is the claimant's
// associated token account identifier; RefundTo receives the reclaimed record
// storage.
type TokenClaimed struct {
	Destination string
	Caller      [20]byte
	Mint        string
	Amount      uint64
	Scaled      *big.Int
	RefundTo    [20]byte
}

func (TokenClaimed) EventType() string { return TypeTokenClaimed }

func (e TokenClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenClaimed,
		Attributes: map[string]string{
			"destination": e.Destination,
			"user":        formatAddr(e.Caller),
			"mint":        normalizeAsset(e.Mint),
			"amount":      formatUint(e.Amount),
			"scaled":      formatAmount(e.Scaled),
			"refundTo":    formatAddr(e.RefundTo),
		},
	}
}
